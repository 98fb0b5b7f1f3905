package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Payphone-Digital/auth/pkg/redis"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusUnhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// CheckResult is the latest observation for one dependency.
type CheckResult struct {
	Name         string
	Status       Status
	Latency      time.Duration
	LastCheck    time.Time
	LastError    error
	CheckCount   int
	FailureCount int
}

// Checker probes one backing dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// DatabaseChecker pings the SQL connection underneath gorm.
type DatabaseChecker struct {
	DB *gorm.DB
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RedisChecker pings the rate-limit store.
type RedisChecker struct {
	Client *redis.Client
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.Client.Ping(ctx)
}

// Monitor periodically probes the service's dependencies and logs state
// transitions, so an operator sees "database went down" once instead of a
// failing request flood.
type Monitor struct {
	checkers []Checker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	results map[string]CheckResult
}

func NewMonitor(interval time.Duration, logger *zap.Logger, checkers ...Checker) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checkers: checkers,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		results:  make(map[string]CheckResult),
	}
}

// Start blocks until the context is cancelled. Callers run it in a
// goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.runChecks(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runChecks(ctx)
		}
	}
}

func (m *Monitor) runChecks(ctx context.Context) {
	for _, checker := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := checker.Check(checkCtx)
		latency := time.Since(start)
		cancel()

		status := StatusHealthy
		if err != nil {
			status = StatusUnhealthy
		}

		m.mu.Lock()
		prev := m.results[checker.Name()]
		result := CheckResult{
			Name:       checker.Name(),
			Status:     status,
			Latency:    latency,
			LastCheck:  start,
			LastError:  err,
			CheckCount: prev.CheckCount + 1,
		}
		result.FailureCount = prev.FailureCount
		if err != nil {
			result.FailureCount++
		}
		m.results[checker.Name()] = result
		m.mu.Unlock()

		if status != prev.Status {
			m.logger.Warn("Dependency health changed",
				zap.String("dependency", checker.Name()),
				zap.String("from", prev.Status.String()),
				zap.String("to", status.String()),
				zap.Duration("latency", latency),
				zap.Error(err),
			)
		}
	}
}

// Snapshot returns a copy of the latest results keyed by dependency name.
func (m *Monitor) Snapshot() map[string]CheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]CheckResult, len(m.results))
	for name, result := range m.results {
		out[name] = result
	}
	return out
}
