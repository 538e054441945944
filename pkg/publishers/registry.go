package publishers

import (
	"context"
	"fmt"
	"io"

	"github.com/samvad-hq/storeconnect-reports/pkg/awsutil"
)

// Deps are the shared collaborators handed to every builder.
type Deps struct {
	Log Logger
	// AWS is the base configuration for the sqs and sns publishers; per-publisher
	// region/endpoint override it.
	AWS awsutil.Settings
}

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error)

// Registry maps publisher types to builders.
type Registry map[string]Builder

// DefaultRegistry wires up known publishers.
func DefaultRegistry() Registry {
	return Registry{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// Build constructs the publisher for cfg, restricted to cfg.Reports when set.
func (r Registry) Build(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	builder, ok := r[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	deps.Log = ensureLogger(deps.Log)

	pub, err := builder(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	if len(cfg.Reports) > 0 {
		pub = &kindFilter{Publisher: pub, cfg: cfg}
	}
	return pub, nil
}

// BuildAll instantiates publishers for cfgs. Publishers built before a failure are closed.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, deps Deps) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, deps)
		if err != nil {
			_ = NewFanout(pubs).Close()
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// kindFilter drops events for report kinds the publisher is not subscribed to.
type kindFilter struct {
	Publisher
	cfg PublisherConfig
}

func (k *kindFilter) Publish(ctx context.Context, evt Event) error {
	if !k.cfg.Accepts(evt.ReportKind) {
		return nil
	}
	return k.Publisher.Publish(ctx, evt)
}

func (k *kindFilter) Close() error {
	if c, ok := k.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// awsSettings merges a publisher's region/endpoint over the shared AWS settings.
func awsSettings(base awsutil.Settings, region, endpoint string) awsutil.Settings {
	if region != "" {
		base.Region = region
	}
	if endpoint != "" {
		base.Endpoint = endpoint
	}
	return base
}
