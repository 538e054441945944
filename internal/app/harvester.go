package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/storeconnect-reports/internal/config"
	"github.com/samvad-hq/storeconnect-reports/internal/domain"
	"github.com/samvad-hq/storeconnect-reports/internal/logger"
	"github.com/samvad-hq/storeconnect-reports/internal/storage"
	"github.com/samvad-hq/storeconnect-reports/pkg/awsutil"
	"github.com/samvad-hq/storeconnect-reports/pkg/httpclient"
	"github.com/samvad-hq/storeconnect-reports/pkg/publishers"
	"github.com/samvad-hq/storeconnect-reports/pkg/sinks"
	"github.com/samvad-hq/storeconnect-reports/pkg/storeconnect"
)

// ReportFetcher is the subset of storeconnect.ReportClient the harvester drives.
type ReportFetcher interface {
	VendorNumber() string
	FetchSalesSummary(ctx context.Context, reportDate string, compressed bool) ([]byte, error)
	FetchSubscriptionEventsSummary(ctx context.Context, reportDate string, compressed bool) ([]byte, error)
}

// Harvester downloads the configured reports for the recent days, stores them
// in a sink, announces them to publishers and records them in the ledger.
type Harvester struct {
	client        ReportFetcher
	sink          sinks.Sink
	fanout        *publishers.Fanout
	store         storage.Store
	kinds         []domain.ReportKind
	lookbackDays  int
	compressed    bool
	fetchInterval time.Duration
	log           logger.Logger
	now           func() time.Time
}

// NewHarvester builds a harvester runtime from config.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	kinds := make([]domain.ReportKind, 0, len(cfg.ReportKinds))
	for _, raw := range cfg.ReportKinds {
		k, err := domain.ParseReportKind(raw)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}

	issuer, err := storeconnect.NewTokenIssuer(storeconnect.Credentials{
		KeyID:      cfg.KeyID,
		IssuerID:   cfg.IssuerID,
		PrivateKey: cfg.PrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}
	client, err := storeconnect.NewReportClient(cfg.VendorNumber, issuer,
		storeconnect.WithBaseURL(cfg.APIBaseURL),
		storeconnect.WithHTTPClient(httpclient.NewRestyClient(cfg.HTTPTimeout)),
		storeconnect.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init report client: %w", err)
	}

	sink, err := sinks.New(ctx, sinks.Config{
		Type: cfg.SinkType,
		Dir:  cfg.OutputDir,
		S3: sinks.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			AWS:    cfg.AWSSettings(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init sink: %w", err)
	}
	log.InfoObj("sink initialized", "sink_config", map[string]any{
		"type":       sink.Type(),
		"output_dir": cfg.OutputDir,
		"s3_bucket":  cfg.S3Bucket,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log, cfg.AWSSettings())
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Harvester{
		client:        client,
		sink:          sink,
		fanout:        fanout,
		store:         store,
		kinds:         kinds,
		lookbackDays:  cfg.ReportLookbackDays,
		compressed:    cfg.Compressed,
		fetchInterval: cfg.FetchInterval,
		log:           log,
		now:           time.Now,
	}, nil
}

// buildFanout loads publishers from path; an empty path disables publishing.
// SQS and SNS publishers start from awsBase and apply their own region/endpoint.
func buildFanout(ctx context.Context, path string, log logger.Logger, awsBase awsutil.Settings) (*publishers.Fanout, error) {
	if path == "" {
		log.InfoObj("no publishers file configured; events disabled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, publishers.Deps{Log: log, AWS: awsBase})
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":      pubCfg.ID,
			"type":    pubCfg.Type,
			"reports": strings.Join(pubCfg.Reports, ","),
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run executes a harvest pass, then repeats every fetch interval until ctx is
// cancelled. A zero interval runs a single pass and returns its error.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.client == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if h.fetchInterval <= 0 {
		return h.RunOnce(ctx)
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"report_kinds":     h.kinds,
		"lookback_days":    h.lookbackDays,
		"publishers_count": h.fanout.Size(),
		"fetch_interval":   h.fetchInterval.String(),
	})

	if err := h.RunOnce(ctx); err != nil {
		h.log.ErrorObj("initial harvest failed", "error", err)
	}

	ticker := time.NewTicker(h.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := h.RunOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err)
			}
		}
	}
}

// RunOnce harvests every configured kind for each day in the lookback window.
func (h *Harvester) RunOnce(ctx context.Context) error {
	start := h.now()
	dates := domain.DatesBack(start, h.lookbackDays)
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"report_kinds": h.kinds,
		"dates":        dates,
		"started_at":   start.UTC(),
	})

	var (
		errs    []error
		stored  int
		skipped int
		missing int
	)
	for _, kind := range h.kinds {
		for _, date := range dates {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			res, err := h.harvest(ctx, kind, date)
			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", domain.ReportKey(kind, date), err))
				h.log.ErrorObj("report harvest failed", "report_error", map[string]any{
					"report_kind": kind,
					"report_date": date,
					"error":       err.Error(),
				})
			case res == outcomeStored:
				stored++
			case res == outcomeSkipped:
				skipped++
			case res == outcomeNotAvailable:
				missing++
			}
		}
	}

	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"stored":        stored,
		"skipped":       skipped,
		"not_available": missing,
		"failed":        len(errs),
		"elapsed_ms":    h.now().Sub(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeSkipped
	outcomeNotAvailable
)

func (h *Harvester) harvest(ctx context.Context, kind domain.ReportKind, date string) (outcome, error) {
	key := domain.ReportKey(kind, date)

	if entry, found, err := h.store.Lookup(key); err != nil {
		return 0, fmt.Errorf("ledger lookup: %w", err)
	} else if found {
		h.log.DebugObj("report already harvested", "report_skip", map[string]any{
			"key":      key,
			"location": entry.Location,
		})
		return outcomeSkipped, nil
	}

	data, err := h.fetch(ctx, kind, date)
	if err != nil {
		var reqErr *storeconnect.RequestFailedError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			h.log.WarnObj("report not available yet", "report_missing", map[string]any{
				"key": key,
				"url": reqErr.URL,
			})
			return outcomeNotAvailable, nil
		}
		return 0, fmt.Errorf("fetch: %w", err)
	}

	report := domain.Report{
		Kind:         kind,
		Date:         date,
		VendorNumber: h.client.VendorNumber(),
		Compressed:   h.compressed,
		Data:         data,
		FetchedAt:    h.now(),
	}
	location, err := h.sink.Put(ctx, report)
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	if n, err := h.fanout.Publish(ctx, publishers.NewEvent(report, location)); err != nil {
		// The payload is stored; leave the ledger untouched so the next pass re-announces it.
		return 0, fmt.Errorf("publish (%d delivered): %w", n, err)
	}

	if err := h.store.MarkHarvested(key, location); err != nil {
		return 0, fmt.Errorf("ledger mark: %w", err)
	}
	h.log.InfoObj("report harvested", "report_meta", map[string]any{
		"key":      key,
		"location": location,
		"bytes":    len(data),
	})
	return outcomeStored, nil
}

func (h *Harvester) fetch(ctx context.Context, kind domain.ReportKind, date string) ([]byte, error) {
	switch kind {
	case domain.KindSalesSummary:
		return h.client.FetchSalesSummary(ctx, date, h.compressed)
	case domain.KindSubscriptionEventsSummary:
		return h.client.FetchSubscriptionEventsSummary(ctx, date, h.compressed)
	default:
		return nil, fmt.Errorf("unsupported report kind %q", kind)
	}
}

// close releases the ledger and publisher connections, logging failures.
func (h *Harvester) close() {
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err)
		}
	}
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publishers close failed", "error", err)
	}
}
