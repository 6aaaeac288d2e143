package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	failures  int
	stopErr   error
	events    *[]string
}

func (f *fakeDependency) GetName() string     { return f.name }
func (f *fakeDependency) DependsOn() []string { return f.dependsOn }

func (f *fakeDependency) Start(ctx context.Context) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("not ready")
	}
	*f.events = append(*f.events, "start:"+f.name)
	return nil
}

func (f *fakeDependency) Stop(ctx context.Context) error {
	*f.events = append(*f.events, "stop:"+f.name)
	return f.stopErr
}

func newTestStartup(maxAttempts int) *Startup {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewStartup(logger, maxAttempts).WithBackoff(time.Millisecond)
}

func TestStartup_DependencyOrder(t *testing.T) {
	var events []string
	s := newTestStartup(1)
	s.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"tracing", "prometheus"}, events: &events})
	s.AddDependency(&fakeDependency{name: "tracing", events: &events})
	s.AddDependency(&fakeDependency{name: "prometheus", dependsOn: []string{"tracing"}, events: &events})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:tracing", "start:prometheus", "start:server"}, events)
	assert.Equal(t, StartupStatusStarted, s.Status("server"))

	events = events[:0]
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:server", "stop:prometheus", "stop:tracing"}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("tracing"))
}

func TestStartup_Retries(t *testing.T) {
	var events []string
	s := newTestStartup(3)
	s.AddDependency(&fakeDependency{name: "flaky", failures: 2, events: &events})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:flaky"}, events)
}

func TestStartup_GivesUp(t *testing.T) {
	var events []string
	s := newTestStartup(2)
	s.AddDependency(&fakeDependency{name: "down", failures: 5, events: &events})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("down"))
}

func TestStartup_UnknownAndCyclicDependencies(t *testing.T) {
	var events []string

	unknown := newTestStartup(1)
	unknown.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"db"}, events: &events})
	assert.ErrorContains(t, unknown.Start(context.Background()), "unknown dependency 'db'")

	cyclic := newTestStartup(1)
	cyclic.AddDependency(&fakeDependency{name: "a", dependsOn: []string{"b"}, events: &events})
	cyclic.AddDependency(&fakeDependency{name: "b", dependsOn: []string{"a"}, events: &events})
	assert.ErrorContains(t, cyclic.Start(context.Background()), "dependency cycle")
}

func TestStartup_StopReturnsFirstError(t *testing.T) {
	var events []string
	s := newTestStartup(1)
	s.AddDependency(&fakeDependency{name: "a", stopErr: errors.New("a failed"), events: &events})
	s.AddDependency(&fakeDependency{name: "b", events: &events})
	require.NoError(t, s.Start(context.Background()))

	events = events[:0]
	assert.EqualError(t, s.Stop(context.Background()), "a failed")
	assert.Equal(t, []string{"stop:b", "stop:a"}, events)
}

func TestStartup_Cancelled(t *testing.T) {
	var events []string
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), 3).WithBackoff(time.Hour)
	s.AddDependency(&fakeDependency{name: "down", failures: 5, events: &events})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
}
