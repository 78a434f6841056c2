package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiguard/internal/cache"
	"piiguard/internal/core"
	"piiguard/internal/observability"
	"piiguard/internal/pii"
)

func mustRecord(t *testing.T, raw string) core.Record {
	t.Helper()
	rec, err := core.ParseRecord(raw)
	require.NoError(t, err)
	return rec
}

func newTestEngine(t *testing.T) *pii.Engine {
	t.Helper()
	e, err := pii.New(pii.DefaultConfig())
	require.NoError(t, err)
	return e
}

// panicClassifier panics on records carrying a "boom" field.
type panicClassifier struct {
	next  Classifier
	calls atomic.Int64
}

func (p *panicClassifier) ClassifyAndRedact(rec core.Record) (core.RedactedRecord, bool, pii.Report) {
	p.calls.Add(1)
	if _, ok := rec.Get("boom"); ok {
		panic("boom")
	}
	return p.next.ClassifyAndRedact(rec)
}

func TestRunner_PreservesOrder(t *testing.T) {
	r := NewRunner(newTestEngine(t), RunnerConfig{Workers: 4})

	items := make([]Item, 50)
	for i := range items {
		raw := `{"city":"Pune"}`
		if i%2 == 0 {
			raw = `{"phone":"9876543210"}`
		}
		items[i] = Item{RecordID: fmt.Sprintf("r%d", i), Record: mustRecord(t, raw)}
	}

	results, err := r.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, res := range results {
		assert.Equal(t, items[i].RecordID, res.RecordID)
		assert.Equal(t, i%2 == 0, res.IsPII, "record %s", res.RecordID)
	}
	assert.Equal(t, 1, results[0].Detections[string(pii.PIITypePhone)])
}

func TestRunner_RecoversPanics(t *testing.T) {
	m := observability.NewMetrics()
	r := NewRunner(&panicClassifier{next: newTestEngine(t)}, RunnerConfig{Workers: 2, Metrics: m})

	results, err := r.Run(context.Background(), []Item{
		{RecordID: "ok", Record: mustRecord(t, `{"phone":"9876543210"}`)},
		{RecordID: "bad", Record: mustRecord(t, `{"boom":"1","phone":"9876543210"}`)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].IsPII)
	assert.Empty(t, results[0].Error)

	bad := results[1]
	assert.Equal(t, "bad", bad.RecordID)
	assert.False(t, bad.IsPII)
	assert.Empty(t, bad.RedactedData)
	assert.Contains(t, bad.Error, "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordErrors))
}

func TestRunner_Cancelled(t *testing.T) {
	r := NewRunner(newTestEngine(t), RunnerConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, []Item{{RecordID: "r1", Record: mustRecord(t, `{"a":"b"}`)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_CacheHit(t *testing.T) {
	m := observability.NewMetrics()
	classifier := &panicClassifier{next: newTestEngine(t)}
	r := NewRunner(classifier, RunnerConfig{Workers: 1, Cache: cache.NewLocalCache(0, 0), Metrics: m})

	item := Item{RecordID: "r1", Record: mustRecord(t, `{"name":"Jane Smith","email":"jane@example.com"}`)}
	first := r.RunOne(context.Background(), item)
	item.RecordID = "r2"
	second := r.RunOne(context.Background(), item)

	assert.EqualValues(t, 1, classifier.calls.Load())
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, "r2", second.RecordID)
	assert.Equal(t, first.IsPII, second.IsPII)
	assert.Equal(t, first.RedactedData, second.RedactedData)
	assert.Equal(t, first.WeakSignals, second.WeakSignals)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("pii")))
}

func TestRunner_CacheScopedByRouting(t *testing.T) {
	shared := cache.NewLocalCache(0, 0)
	aliased, err := pii.New(pii.Config{Aliases: map[string]string{"home": "address"}})
	require.NoError(t, err)

	before := NewRunner(newTestEngine(t), RunnerConfig{Workers: 1, Cache: shared})
	after := NewRunner(aliased, RunnerConfig{Workers: 1, Cache: shared})

	item := Item{RecordID: "r1", Record: mustRecord(t, `{"home":"12 Oak Street","name":"Jane Smith"}`)}

	first := before.RunOne(context.Background(), item)
	assert.False(t, first.IsPII)
	assert.Equal(t, mustRecord(t, `{"home":"12 Oak Street","name":"JXXX SXXXX"}`), first.RedactedData)

	second := after.RunOne(context.Background(), item)
	assert.False(t, second.Cached)
	assert.True(t, second.IsPII)
	assert.Equal(t, mustRecord(t, `{"home":"XX Oak Street","name":"JXXX SXXXX"}`), second.RedactedData)

	again := before.RunOne(context.Background(), item)
	assert.True(t, again.Cached)
	assert.False(t, again.IsPII)
}

func TestRunner_DecodeStatus(t *testing.T) {
	m := observability.NewMetrics()
	r := NewRunner(newTestEngine(t), RunnerConfig{Metrics: m})

	results, err := r.Run(context.Background(), []Item{
		{RecordID: "r1", Record: core.Record{}, Decode: core.DecodeFailed},
		{RecordID: "r2", Record: mustRecord(t, `{"a":"b"}`), Decode: core.DecodeRepaired},
		{RecordID: "r3", Record: mustRecord(t, `{"a":"b"}`)},
	})
	require.NoError(t, err)

	assert.True(t, results[0].ParseFailed)
	assert.False(t, results[0].IsPII)
	assert.False(t, results[1].ParseFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseFailures.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseFailures.WithLabelValues("repaired")))
}

func TestSummarize(t *testing.T) {
	got := Summarize([]core.ClassifyResult{
		{IsPII: true, Detections: map[string]int{"phone": 2}},
		{IsPII: true, Cached: true, Detections: map[string]int{"phone": 1, "email": 1}},
		{ParseFailed: true},
		{Error: "internal error: boom"},
	})

	assert.Equal(t, core.BatchSummary{
		Total:         4,
		PII:           2,
		ParseFailures: 1,
		Errors:        1,
		CacheHits:     1,
		Detections:    map[string]int{"phone": 3, "email": 1},
	}, got)
}
