package cart

import (
	"context"
	"sync"
)

// Locker сериализует изменения одной корзины.
type Locker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// localLocker держит мьютекс пользователя, пока его кто-то ждёт или держит.
// Последний unlock убирает запись, поэтому таблица не растёт с числом пользователей.
type localLocker struct {
	mu    sync.Mutex
	users map[string]*userLock
}

func newLocalLocker() *localLocker {
	return &localLocker{users: make(map[string]*userLock)}
}

func (l *localLocker) Lock(_ context.Context, userID string) (func(), error) {
	l.mu.Lock()
	ul, ok := l.users[userID]
	if !ok {
		ul = &userLock{}
		l.users[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}, nil
}

func (l *localLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
