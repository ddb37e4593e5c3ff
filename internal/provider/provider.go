package provider

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/services"
)

// Provider is one interchangeable backend for a unit of work.
type Provider[Req, Res any] interface {
	Name() string
	// Priority ranks providers; higher runs first.
	Priority() int
	// Available reports readiness without doing the work.
	Available(ctx context.Context) bool
	Execute(ctx context.Context, req Req) (Res, error)
}

// Chain tries providers in priority order until one succeeds.
type Chain[Req, Res any] struct {
	providers []Provider[Req, Res]
	labels    []string
	logger    *slog.Logger
}

// NewChain orders providers by descending priority. Ties keep their insertion
// order. A name that repeats is labelled "name#2", "name#3" and so on, so
// every provider keeps its own entry in an *AllFailedError.
func NewChain[Req, Res any](providers ...Provider[Req, Res]) *Chain[Req, Res] {
	ordered := slices.Clone(providers)
	slices.SortStableFunc(ordered, func(a, b Provider[Req, Res]) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	return &Chain[Req, Res]{providers: ordered, labels: uniqueLabels(ordered), logger: logging.NewNop()}
}

func uniqueLabels[Req, Res any](providers []Provider[Req, Res]) []string {
	labels := make([]string, 0, len(providers))
	taken := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		label := p.Name()
		for n := 2; ; n++ {
			if _, dup := taken[label]; !dup {
				break
			}
			label = fmt.Sprintf("%s#%d", p.Name(), n)
		}
		taken[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// WithLogger attaches a logger for fallback diagnostics.
func (c *Chain[Req, Res]) WithLogger(logger *slog.Logger) *Chain[Req, Res] {
	c.logger = logging.NewComponentLogger(logger, "provider")
	return c
}

// Names returns provider labels in attempt order.
func (c *Chain[Req, Res]) Names() []string {
	return slices.Clone(c.labels)
}

// Execute returns the first successful result. Availability is checked on
// every call and no provider is retried within one call. When nothing
// succeeds the error is an *AllFailedError.
func (c *Chain[Req, Res]) Execute(ctx context.Context, req Req) (Res, error) {
	var zero Res
	failure := &AllFailedError{
		Names:  c.Names(),
		Errors: make(map[string]error, len(c.providers)),
	}
	logger := logging.WithContext(ctx, c.logger)

	for i, p := range c.providers {
		name := c.labels[i]
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if !p.Available(ctx) {
			failure.Skipped = append(failure.Skipped, name)
			logger.Debug("provider unavailable, skipping",
				logging.String(logging.FieldProvider, name),
				logging.String(logging.FieldEventType, "provider_skipped"),
			)
			continue
		}

		res, err := p.Execute(services.WithProvider(ctx, p.Name()), req)
		if err == nil {
			if len(failure.order) > 0 || len(failure.Skipped) > 0 {
				logger.Info("provider fallback succeeded",
					logging.String(logging.FieldProvider, name),
					logging.String(logging.FieldEventType, "provider_fallback"),
					logging.Int("failed_attempts", len(failure.order)),
				)
			}
			return res, nil
		}

		failure.record(name, err)
		logging.WarnWithContext(logger, "provider failed, trying next",
			"provider_failure",
			logging.String(logging.FieldProvider, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to lower-priority provider"),
		)
	}

	if len(failure.order) == 0 && len(failure.Skipped) > 0 {
		logger.Warn("no provider available",
			logging.String("providers", strings.Join(failure.Skipped, ",")),
			logging.String(logging.FieldEventType, "providers_unavailable"),
			logging.String(logging.FieldErrorHint, "install the provider tools or set their credentials"),
		)
	}
	return zero, failure
}
