package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"piiguard/internal/cache"
	"piiguard/internal/core"
	"piiguard/internal/observability"
	"piiguard/internal/pii"
)

// Classifier is the engine operation the runner fans out.
type Classifier interface {
	ClassifyAndRedact(rec core.Record) (core.RedactedRecord, bool, pii.Report)
}

// Item is one record queued for classification.
type Item struct {
	RecordID string
	Record   core.Record
	// Decode tells how Record was obtained from its source text.
	Decode core.DecodeStatus
}

// fingerprinter is implemented by classifiers whose output depends on
// configuration. The fingerprint scopes their cache entries.
type fingerprinter interface {
	Fingerprint() string
}

// RunnerConfig configures a Runner. Cache and Metrics are optional.
type RunnerConfig struct {
	Workers int
	Cache   cache.Cache
	Metrics *observability.Metrics
}

// Runner classifies items on a bounded pool of workers.
type Runner struct {
	classifier Classifier
	cache      cache.Cache
	metrics    *observability.Metrics
	workers    int
	cacheScope string
}

// NewRunner creates a runner. Workers defaults to GOMAXPROCS.
func NewRunner(c Classifier, cfg RunnerConfig) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r := &Runner{
		classifier: c,
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		workers:    workers,
	}
	if f, ok := c.(fingerprinter); ok {
		r.cacheScope = f.Fingerprint()
	}
	return r
}

// Run classifies every item and returns the results in input order.
//
// A record that panics is emitted with an empty mapping, a false verdict and
// an error note; it never aborts the run. Cancelling ctx stops scheduling new
// records and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, items []Item) ([]core.ClassifyResult, error) {
	start := time.Now()
	results := make([]core.ClassifyResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.classify(gctx, items[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.metrics.ObserveBatch(time.Since(start))
	return results, nil
}

// RunOne classifies a single item on the calling goroutine.
func (r *Runner) RunOne(ctx context.Context, item Item) core.ClassifyResult {
	return r.classify(ctx, item)
}

func (r *Runner) classify(ctx context.Context, item Item) (res core.ClassifyResult) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("record processing panicked", append(core.LogAttrs(ctx), "record_id", item.RecordID, "panic", p)...)
			r.metrics.ObserveRecordError()
			res = core.ClassifyResult{
				RecordID:     item.RecordID,
				RedactedData: core.Record{},
				Error:        fmt.Sprintf("internal error: %v", p),
			}
		}
	}()

	res.RecordID = item.RecordID
	switch item.Decode {
	case core.DecodeRepaired:
		r.metrics.ObserveDecode(core.DecodeRepaired.String())
	case core.DecodeFailed:
		r.metrics.ObserveDecode(core.DecodeFailed.String())
		res.ParseFailed = true
	}

	key := r.cacheKey(item)
	if entry := r.lookup(ctx, key); entry != nil {
		r.metrics.ObserveCacheHit()
		res.RedactedData = entry.Redacted
		res.IsPII = entry.IsPII
		res.Detections = entry.Detections
		res.WeakSignals = entry.WeakSignals
		res.Cached = true
		r.metrics.ObserveRecord(res.IsPII, res.Detections)
		return res
	}

	redacted, isPII, report := r.classifier.ClassifyAndRedact(item.Record)
	res.RedactedData = redacted
	res.IsPII = isPII
	res.Detections = report.DetectionCounts()
	res.WeakSignals = report.WeakSignals()
	r.metrics.ObserveRecord(isPII, res.Detections)

	r.store(ctx, key, &cache.Entry{
		Redacted:    redacted,
		IsPII:       isPII,
		Detections:  res.Detections,
		WeakSignals: res.WeakSignals,
	})
	return res
}

func (r *Runner) cacheKey(item Item) string {
	if r.cache == nil || len(item.Record) == 0 {
		return ""
	}
	key, err := cache.Key(r.cacheScope, item.Record)
	if err != nil {
		slog.Warn("skipping result cache", "record_id", item.RecordID, "error", err)
		return ""
	}
	return key
}

func (r *Runner) lookup(ctx context.Context, key string) *cache.Entry {
	if key == "" {
		return nil
	}
	entry, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("result cache lookup failed", "error", err)
		return nil
	}
	return entry
}

func (r *Runner) store(ctx context.Context, key string, entry *cache.Entry) {
	if key == "" {
		return
	}
	if err := r.cache.Set(ctx, key, entry); err != nil {
		slog.Warn("result cache store failed", "error", err)
	}
}

// Summarize aggregates results into batch counters.
func Summarize(results []core.ClassifyResult) core.BatchSummary {
	s := core.BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.IsPII {
			s.PII++
		}
		if r.ParseFailed {
			s.ParseFailures++
		}
		if r.Error != "" {
			s.Errors++
		}
		if r.Cached {
			s.CacheHits++
		}
		for typ, n := range r.Detections {
			if s.Detections == nil {
				s.Detections = make(map[string]int)
			}
			s.Detections[typ] += n
		}
	}
	return s
}
