package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"piiguard/internal/core"
	"piiguard/internal/dataset"
)

// Batch sources.
const (
	SourceAPI     = "api"
	SourceDataset = "dataset"
)

// Service runs batches and records them in a Store. A nil Store disables
// persistence; runs still return their batch object.
type Service struct {
	runner *Runner
	store  Store
	now    func() time.Time
}

// NewService creates a service over runner and store.
func NewService(runner *Runner, store Store) *Service {
	return &Service{runner: runner, store: store, now: time.Now}
}

// Classify processes one record. A missing record id is replaced by a UUID.
func (s *Service) Classify(ctx context.Context, req core.ClassifyRequest) core.ClassifyResult {
	id := req.RecordID
	if id == "" {
		id = uuid.NewString()
	}
	return s.runner.RunOne(ctx, Item{RecordID: id, Record: req.Data})
}

// Submit classifies the records of req as one persisted batch.
func (s *Service) Submit(ctx context.Context, req core.BatchRequest) (*core.Batch, error) {
	items := make([]Item, len(req.Records))
	for i, r := range req.Records {
		id := r.RecordID
		if id == "" {
			id = uuid.NewString()
		}
		items[i] = Item{RecordID: id, Record: r.Data}
	}

	b := s.newBatch(SourceAPI, req.Metadata)
	results, err := s.run(ctx, b, items)
	if err != nil {
		return b, err
	}
	b.Results = results
	return b, s.finish(ctx, b)
}

// ScanDataset reads an input CSV from src, classifies every row and writes
// the redacted CSV to dst. The persisted batch carries the summary only.
func (s *Service) ScanDataset(ctx context.Context, name string, src io.Reader, dst io.Writer, opts dataset.Options) (*core.Batch, error) {
	rows, err := dataset.ReadAll(src, opts)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		if row.Status == core.DecodeFailed {
			slog.Warn("record data could not be decoded", "dataset", name, "line", row.Line, "record_id", row.RecordID)
		}
		items[i] = Item{RecordID: row.RecordID, Record: row.Record, Decode: row.Status}
	}

	b := s.newBatch(SourceDataset, map[string]string{"name": name})
	results, err := s.run(ctx, b, items)
	if err != nil {
		return b, err
	}

	out := make([]dataset.Result, len(results))
	for i, r := range results {
		out[i] = dataset.Result{RecordID: r.RecordID, Redacted: r.RedactedData, IsPII: r.IsPII}
	}
	if err := dataset.WriteAll(dst, out); err != nil {
		s.fail(ctx, b)
		return b, fmt.Errorf("write dataset %s: %w", name, err)
	}
	return b, s.finish(ctx, b)
}

// Get returns a stored batch.
func (s *Service) Get(ctx context.Context, id string) (*core.Batch, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// List returns one page of stored batches without their per-record results.
func (s *Service) List(ctx context.Context, opts ListOptions) (*core.BatchListResponse, error) {
	resp := &core.BatchListResponse{Object: "list", Data: []core.Batch{}}
	if s.store == nil {
		return resp, nil
	}

	limit := normalizeLimit(opts.Limit)
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	opts.Limit = limit + 1
	items, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		resp.HasMore = true
		items = items[:limit]
	}
	for _, b := range items {
		b.Results = nil
		resp.Data = append(resp.Data, *b)
	}
	if len(resp.Data) > 0 {
		resp.FirstID = resp.Data[0].ID
		resp.LastID = resp.Data[len(resp.Data)-1].ID
	}
	return resp, nil
}

func (s *Service) newBatch(source string, metadata map[string]string) *core.Batch {
	return &core.Batch{
		ID:        "batch_" + uuid.NewString(),
		Object:    "batch",
		Source:    source,
		Status:    core.BatchStatusInProgress,
		CreatedAt: s.now().Unix(),
		Metadata:  metadata,
	}
}

// run persists b as in progress, classifies items and fills in the summary.
func (s *Service) run(ctx context.Context, b *core.Batch, items []Item) ([]core.ClassifyResult, error) {
	if s.store != nil {
		if err := s.store.Create(ctx, b); err != nil {
			return nil, fmt.Errorf("create batch: %w", err)
		}
	}

	results, err := s.runner.Run(ctx, items)
	if err != nil {
		s.fail(ctx, b)
		return nil, fmt.Errorf("run batch %s: %w", b.ID, err)
	}
	b.Summary = Summarize(results)
	slog.Info("batch classified", append(core.LogAttrs(ctx),
		"batch_id", b.ID,
		"source", b.Source,
		"total", b.Summary.Total,
		"pii", b.Summary.PII,
		"parse_failures", b.Summary.ParseFailures,
		"errors", b.Summary.Errors,
	)...)
	return results, nil
}

func (s *Service) finish(ctx context.Context, b *core.Batch) error {
	completed := s.now().Unix()
	b.Status = core.BatchStatusCompleted
	b.CompletedAt = &completed
	if s.store == nil {
		return nil
	}
	if err := s.store.Update(ctx, b); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// fail marks b failed. It uses a context detached from cancellation so a
// cancelled run is still recorded.
func (s *Service) fail(ctx context.Context, b *core.Batch) {
	b.Status = core.BatchStatusFailed
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Update(ctx, b); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("failed to mark batch failed", "batch_id", b.ID, "error", err)
	}
}
