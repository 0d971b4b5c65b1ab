package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов. Заказы не удаляются.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// GetByTxRef ищет заказ по ссылке платёжной транзакции.
	GetByTxRef(ctx context.Context, txRef string) (Order, error)
	// ListByUser возвращает заказы покупателя, новые первыми.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll возвращает все заказы, новые первыми.
	ListAll(ctx context.Context) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking:
	// order.Version должен совпадать с сохранённым, после записи версия увеличивается на 1.
	Save(ctx context.Context, order Order) error
}

// ProductRepository хранит каталог товаров.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	Get(ctx context.Context, id string) (Product, error)
	// GetMany возвращает найденные товары по ID; отсутствующие просто не попадают в результат.
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	// List возвращает страницу товаров и общее количество подходящих под фильтры.
	List(ctx context.Context, query ProductQuery) ([]Product, int, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
	// DecrementStock атомарно уменьшает остаток, только если stock >= qty.
	// Иначе возвращает ErrStockExceeded, для неизвестного товара ErrProductNotFound.
	DecrementStock(ctx context.Context, id string, qty int) error
}

// CategoryRepository хранит категории каталога.
type CategoryRepository interface {
	Create(ctx context.Context, category Category) error
	Get(ctx context.Context, id string) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category Category) error
	Delete(ctx context.Context, id string) error
}

// ReviewRepository хранит отзывы. Пара (товар, пользователь) уникальна.
type ReviewRepository interface {
	// Create возвращает ErrReviewExists при повторном отзыве.
	Create(ctx context.Context, review Review) error
	Get(ctx context.Context, id string) (Review, error)
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	Delete(ctx context.Context, id string) error
}

// FeatureRepository хранит баннеры витрины.
type FeatureRepository interface {
	Create(ctx context.Context, feature Feature) error
	Get(ctx context.Context, id string) (Feature, error)
	List(ctx context.Context) ([]Feature, error)
	Update(ctx context.Context, feature Feature) error
	Delete(ctx context.Context, id string) error
}

// UserRepository хранит учётные записи. Email уникален.
type UserRepository interface {
	// Create возвращает ErrUserExists, если email уже занят.
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}

// AddressRepository хранит адреса доставки.
type AddressRepository interface {
	Create(ctx context.Context, address Address) error
	Get(ctx context.Context, id string) (Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	Update(ctx context.Context, address Address) error
	Delete(ctx context.Context, id string) error
}

// WishlistRepository хранит избранное; на пользователя не больше одного списка.
type WishlistRepository interface {
	Get(ctx context.Context, userID string) (Wishlist, error)
	Save(ctx context.Context, wishlist Wishlist) error
}

// CartRepository хранит корзины. Просроченная корзина считается отсутствующей.
type CartRepository interface {
	// Get возвращает ErrCartNotFound, если корзины нет или истёк её срок.
	Get(ctx context.Context, userID string) (Cart, error)
	// Save записывает корзину целиком и продлевает срок жизни до cart.ExpiresAt.
	Save(ctx context.Context, cart Cart) error
}
