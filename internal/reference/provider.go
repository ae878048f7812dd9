package reference

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

// Snapshot is one loaded generation of reference data
type Snapshot struct {
	Validator *prescription.Validator
	Source    string
	Version   string
	LoadedAt  time.Time
}

// Provider holds the current validator and swaps it atomically on reload.
// A failed reload keeps the previous snapshot.
type Provider struct {
	source  Source
	opts    []prescription.Option
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
	onLoad  func(*Snapshot)
}

// ProviderOption configures a Provider
type ProviderOption func(*Provider)

// WithValidatorOptions passes options to every validator the provider builds
func WithValidatorOptions(opts ...prescription.Option) ProviderOption {
	return func(p *Provider) { p.opts = append(p.opts, opts...) }
}

// WithLoadHook registers a callback run after each successful load
func WithLoadHook(fn func(*Snapshot)) ProviderOption {
	return func(p *Provider) { p.onLoad = fn }
}

// NewProvider loads the source once and returns a ready provider
func NewProvider(ctx context.Context, source Source, logger *zap.Logger, opts ...ProviderOption) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{source: source, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload fetches and validates the source, replacing the snapshot on success
func (p *Provider) Reload(ctx context.Context) error {
	doc, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reference data from %s: %w", p.source.Name(), err)
	}
	formulary, schedules, err := doc.Build()
	if err != nil {
		return fmt.Errorf("reference data from %s: %w", p.source.Name(), err)
	}

	snap := &Snapshot{
		Validator: prescription.NewValidator(formulary, schedules, p.opts...),
		Source:    p.source.Name(),
		Version:   doc.Version,
		LoadedAt:  time.Now().UTC(),
	}
	p.current.Store(snap)

	p.logger.Info("Reference data loaded",
		zap.String("source", snap.Source),
		zap.String("version", snap.Version),
		zap.Int("drugs", formulary.Len()),
		zap.Int("schedules", schedules.Len()),
	)
	if p.onLoad != nil {
		p.onLoad(snap)
	}
	return nil
}

// Current returns the active snapshot
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Validator returns the active validator
func (p *Provider) Validator() *prescription.Validator {
	return p.current.Load().Validator
}

// Watch reloads on every tick until ctx is done. Errors are logged and the
// previous snapshot stays in use.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Reload(ctx); err != nil {
				p.logger.Error("Reference reload failed", zap.Error(err))
			}
		}
	}
}
