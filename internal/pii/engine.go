package pii

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"piiguard/internal/core"
)

// Engine classifies and redacts records. It is immutable after New and safe
// for concurrent use.
type Engine struct {
	routes      map[string]Category
	handlers    map[Category]handler
	freeText    []Detector
	fingerprint string
}

// New builds an engine from cfg.
func New(cfg Config) (*Engine, error) {
	handlers := defaultHandlers()
	routes, err := cfg.buildRoutes(handlers)
	if err != nil {
		return nil, err
	}
	return &Engine{
		routes:      routes,
		handlers:    handlers,
		freeText:    FreeTextDetectors(),
		fingerprint: routesFingerprint(routes),
	}, nil
}

// Fingerprint identifies the engine's field routing. Engines with equal
// fingerprints produce equal output for every record.
func (e *Engine) Fingerprint() string { return e.fingerprint }

func routesFingerprint(routes map[string]Category) string {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)

	d := xxhash.New()
	for _, name := range names {
		_, _ = d.WriteString(name)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(string(routes[name]))
		_, _ = d.WriteString("\n")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// Report describes what ClassifyAndRedact found in one record.
type Report struct {
	Detections map[PIIType]int
	Tally      Tally
	// Strong is set when a strong identifier was found, either in a routed
	// field or embedded in free text.
	Strong bool
}

func (r *Report) add(t PIIType, n int) {
	if r.Detections == nil {
		r.Detections = make(map[PIIType]int)
	}
	r.Detections[t] += n
}

// DetectionCounts returns the detections keyed by type name.
func (r Report) DetectionCounts() map[string]int {
	if len(r.Detections) == 0 {
		return nil
	}
	out := make(map[string]int, len(r.Detections))
	for t, n := range r.Detections {
		out[string(t)] = n
	}
	return out
}

// WeakSignals returns the weak categories that fired, by name.
func (r Report) WeakSignals() []string {
	sigs := r.Tally.Signals()
	if len(sigs) == 0 {
		return nil
	}
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = string(s)
	}
	return out
}

// ClassifyAndRedact masks every sensitive value in rec and decides whether the
// record contains PII. Fields keep their order; non-string values pass through.
// rec is not modified.
func (e *Engine) ClassifyAndRedact(rec core.Record) (core.RedactedRecord, bool, Report) {
	out := rec.Clone()
	var report Report

	for i, f := range out {
		s, ok := f.Value.(string)
		if !ok {
			continue
		}

		if cat, routed := e.routes[f.Name]; routed {
			h := e.handlers[cat]
			masked, n := h.apply(s)
			if n == 0 {
				continue
			}
			out[i].Value = masked
			report.add(h.typ, n)
			if h.kind == kindStrong {
				report.Strong = true
			} else {
				report.Tally.Mark(h.signal)
			}
			continue
		}

		if masked, found := e.scanFreeText(s, &report); found {
			out[i].Value = masked
			report.Strong = true
		}
	}

	return out, Verdict(report.Strong, report.Tally), report
}

func (e *Engine) scanFreeText(s string, report *Report) (string, bool) {
	found := false
	for _, d := range e.freeText {
		var n int
		s, n = d.Redact(s)
		if n > 0 {
			report.add(d.Type(), n)
			found = true
		}
	}
	return s, found
}

// Routes returns a copy of the engine's field-name table.
func (e *Engine) Routes() map[string]Category {
	out := make(map[string]Category, len(e.routes))
	for k, v := range e.routes {
		out[k] = v
	}
	return out
}
