package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (c *stubChecker) Name() string                  { return c.name }
func (c *stubChecker) Check(_ context.Context) error { return c.err }

func TestMonitorTracksResults(t *testing.T) {
	healthy := &stubChecker{name: "database"}
	broken := &stubChecker{name: "redis", err: errors.New("connection refused")}

	m := NewMonitor(time.Minute, nil, healthy, broken)
	m.runChecks(context.Background())

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 2)

	assert.Equal(t, StatusHealthy, snapshot["database"].Status)
	assert.Equal(t, 0, snapshot["database"].FailureCount)

	assert.Equal(t, StatusUnhealthy, snapshot["redis"].Status)
	assert.Equal(t, 1, snapshot["redis"].FailureCount)
	assert.Error(t, snapshot["redis"].LastError)
}

func TestMonitorAccumulatesFailureCounts(t *testing.T) {
	flaky := &stubChecker{name: "redis", err: errors.New("timeout")}
	m := NewMonitor(time.Minute, nil, flaky)

	m.runChecks(context.Background())
	flaky.err = nil
	m.runChecks(context.Background())
	flaky.err = errors.New("timeout again")
	m.runChecks(context.Background())

	result := m.Snapshot()["redis"]
	assert.Equal(t, 3, result.CheckCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, StatusUnhealthy, result.Status)
}
