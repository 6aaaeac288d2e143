package app

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/rulematch/pkg/matching"
	"github.com/Ramsey-B/rulematch/pkg/promql"
	"github.com/Ramsey-B/rulematch/pkg/sources"
	"github.com/Ramsey-B/rulematch/pkg/sources/prometheus"
)

// Container registers the application's components in a new dependency container and returns its id.
// Live sources are registered only when configured.
func (a *App) Container() (string, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       fmt.Sprintf("%s-%s", a.Config.AppName, uuid.NewString()),
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:   "ectoinject",
			LogLevel: loglevel.WARN,
			Enabled:  true,
			LogFunc:  containerLogFunc(a.Logger),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create dependency container: %w", err)
	}

	registrations := []func() error{
		func() error { return ectoinject.RegisterInstance[ectologger.Logger](container, a.Logger) },
		func() error { return ectoinject.RegisterInstance[*matching.Service](container, a.Service) },
		func() error { return ectoinject.RegisterInstance[*promql.Hasher](container, a.Hasher) },
		func() error {
			return ectoinject.RegisterInstance[prometheus.DecodeOptions](container, a.DecodeOptions())
		},
	}
	if a.Ruler != nil {
		registrations = append(registrations, func() error {
			return ectoinject.RegisterInstance[sources.GroupSource](container, a.Ruler, sources.ConfigSource)
		})
	}
	if a.Prometheus != nil {
		registrations = append(registrations, func() error {
			return ectoinject.RegisterInstance[sources.GroupSource](container, a.Prometheus, sources.EvaluationSource)
		})
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return "", fmt.Errorf("failed to register dependency: %w", err)
		}
	}

	return container.GetContainerID(), nil
}

func containerLogFunc(logger ectologger.Logger) func(ctx context.Context, level, msg string) {
	return func(ctx context.Context, level, msg string) {
		if level == loglevel.WARN {
			logger.WithContext(ctx).Warn(msg)
			return
		}
		logger.WithContext(ctx).Debug(msg)
	}
}
