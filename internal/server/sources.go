package server

import (
	"context"

	"github.com/Ramsey-B/rulematch/pkg/routes/health"
)

// SourceCheck is a startup dependency that waits for a rule source to answer
type SourceCheck struct {
	name   string
	pinger health.Pinger
}

// NewSourceCheck creates a startup check for a source
func NewSourceCheck(name string, pinger health.Pinger) *SourceCheck {
	return &SourceCheck{name: name, pinger: pinger}
}

func (c *SourceCheck) GetName() string {
	return c.name
}

func (c *SourceCheck) DependsOn() []string {
	return nil
}

func (c *SourceCheck) Start(ctx context.Context) error {
	return c.pinger.Ping(ctx)
}

func (c *SourceCheck) Stop(context.Context) error {
	return nil
}
