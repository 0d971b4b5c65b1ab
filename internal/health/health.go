package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status: состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultCheckTimeout ограничивает одну проверку.
const DefaultCheckTimeout = 2 * time.Second

// Check: результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report: ответ /healthz.
type Report struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// PingFunc проверяет доступность зависимости.
type PingFunc func(ctx context.Context) error

type probe struct {
	ping     PingFunc
	critical bool
}

// Handler агрегирует проверки зависимостей.
type Handler struct {
	mu        sync.RWMutex
	probes    map[string]probe
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHandler создаёт health handler.
func NewHandler(version string) *Handler {
	return &Handler{
		probes:    make(map[string]probe),
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
}

// Register добавляет критичную проверку: её отказ делает сервис unhealthy.
func (h *Handler) Register(name string, ping PingFunc) {
	h.add(name, ping, true)
}

// RegisterOptional добавляет проверку, отказ которой только понижает статус до degraded.
func (h *Handler) RegisterOptional(name string, ping PingFunc) {
	h.add(name, ping, false)
}

func (h *Handler) add(name string, ping PingFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe{ping: ping, critical: critical}
}

// Evaluate выполняет все проверки.
func (h *Handler) Evaluate(ctx context.Context) Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.probes))
	probes := make(map[string]probe, len(h.probes))
	for name, p := range h.probes {
		names = append(names, name)
		probes[name] = p
	}
	h.mu.RUnlock()
	sort.Strings(names)

	report := Report{
		Status:        StatusHealthy,
		Timestamp:     time.Now().UTC(),
		Checks:        make(map[string]Check, len(names)),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	for _, name := range names {
		p := probes[name]
		check := h.run(ctx, name, p)
		report.Checks[name] = check

		switch {
		case check.Status == StatusHealthy:
		case p.critical:
			report.Status = StatusUnhealthy
		case report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (h *Handler) run(ctx context.Context, name string, p probe) Check {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := p.ping(ctx)
	check := Check{Name: name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		if !p.critical {
			check.Status = StatusDegraded
		}
		check.Message = err.Error()
	}
	return check
}

// ServeHTTP отдаёт полный отчёт; 503 при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Evaluate(r.Context())

	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// LivenessHandler всегда отвечает 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, пока недоступна хотя бы одна критичная зависимость.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.Evaluate(r.Context()).Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
