// Package provider holds the job-source adapters. Each adapter owns exactly
// one wire protocol and one response schema and returns provider-agnostic
// model.RawListing values.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/config"
	"jobmate/matching-service/internal/logger"
	"jobmate/matching-service/internal/model"
)

const httpTimeout = 15 * time.Second

// ErrMissingCredentials is returned by adapters constructed without the
// keys their API needs. The registry never hands such adapters out.
var ErrMissingCredentials = errors.New("missing credentials")

// FetchOptions narrows a search.
type FetchOptions struct {
	Location string
	Limit    int // 0 means the adapter's default page budget
}

// Provider is a job source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, keyword string, opts FetchOptions) ([]model.RawListing, error)
}

// Hydrator is implemented by providers that support per-listing lookup.
// A nil result with a nil error means the listing is unknown upstream.
type Hydrator interface {
	Hydrate(ctx context.Context, sourceID string) (*model.JobDetails, error)
}

// Registry holds the enabled adapters, in a fixed order.
type Registry struct {
	providers []Provider
	hydrators map[string]Hydrator
}

// NewRegistry builds adapters from configuration. Disabled adapters, and
// enabled ones without credentials, are left out entirely.
func NewRegistry(cfg config.ProvidersConfig, log *zap.Logger) *Registry {
	var enabled []Provider

	if cfg.Adzuna.Enabled {
		if cfg.Adzuna.AppID == "" || cfg.Adzuna.APIKey == "" {
			log.Warn("adzuna enabled without ADZUNA_APP_ID / ADZUNA_APP_KEY, leaving it out")
		} else {
			enabled = append(enabled, NewAdzuna(cfg.Adzuna.AppID, cfg.Adzuna.APIKey, cfg.Adzuna.Country))
		}
	}
	if cfg.TheirStack.Enabled {
		if cfg.TheirStack.APIKey == "" {
			log.Warn("theirstack enabled without THEIRSTACK_API_KEY, leaving it out")
		} else {
			enabled = append(enabled, NewTheirStack(cfg.TheirStack.APIKey))
		}
	}
	if cfg.Mock.Enabled {
		enabled = append(enabled, NewMock())
	}

	r := NewRegistryFrom(enabled...)
	log.Info("provider registry ready", zap.Strings("providers", r.Names()))
	return r
}

// NewRegistryFrom wraps already-constructed adapters.
func NewRegistryFrom(providers ...Provider) *Registry {
	r := &Registry{hydrators: make(map[string]Hydrator)}
	for _, p := range providers {
		r.providers = append(r.providers, p)
		if h, ok := p.(Hydrator); ok {
			r.hydrators[p.Name()] = h
		}
	}
	return r
}

// Providers returns the enabled adapters.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Names returns the enabled adapter names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Hydrator returns the hydrating adapter registered under name.
func (r *Registry) Hydrator(name string) (Hydrator, bool) {
	h, ok := r.hydrators[name]
	return h, ok
}

// readBody drains resp and turns any non-2xx status into an error.
func readBody(resp *http.Response, source string) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned %d: %s", source, resp.StatusCode, logger.Truncate(string(body), 200))
	}
	return body, nil
}
