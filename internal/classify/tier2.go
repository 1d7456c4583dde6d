package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/auditlog"
	"github.com/tallyhq/tally/internal/model"
)

// ModelClient is the raw text-in/text-out surface of the external model.
// The engine owns prompt construction and response decoding so both can
// be tested without a live API.
type ModelClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// TierTwoResult is the engine's per-transaction output. When present it
// supersedes the Tier 1 result for the same ID; it never carries a type.
type TierTwoResult struct {
	ID string
	Result
	Reasoning string
}

// Stats summarizes one Tier 2 job for auditing.
type Stats struct {
	Batches    int
	Submitted  int
	Classified int
	Failed     int
}

// Options configures an Engine.
type Options struct {
	Model      string
	BatchSize  int           // transactions per model call
	BatchDelay time.Duration // pause between sequential batches
	MaxRetries uint64        // per-batch API retries before degrading
	Threshold  decimal.Decimal
	AuditRoot  string // project root for the usage log; empty disables it
}

// Engine is the Tier 2 batch classifier.
type Engine struct {
	client ModelClient
	opts   Options
}

// NewEngine creates a Tier 2 engine.
func NewEngine(client ModelClient, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	return &Engine{client: client, opts: opts}
}

// ClassifyAll processes the requests in sequential, rate-limited
// batches. A failed batch degrades to Uncategorized/needs-review for
// its transactions and the job continues; the returned slice always has
// one entry per request. Usage stats are logged fire-and-forget.
func (e *Engine) ClassifyAll(ctx context.Context, reqs []Request) ([]TierTwoResult, Stats) {
	stats := Stats{Submitted: len(reqs)}
	if len(reqs) == 0 {
		return nil, stats
	}

	var results []TierTwoResult
	for start := 0; start < len(reqs); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[start:end]
		stats.Batches++

		batchResults := e.classifyBatch(ctx, batch)
		for _, r := range batchResults {
			if r.Category != "" && r.Category != model.Uncategorized {
				stats.Classified++
			} else if r.Reasoning != "" && r.Category == "" {
				stats.Failed++
			}
		}
		results = append(results, batchResults...)

		// Rate limit between batches; skipped after the final one.
		if end < len(reqs) {
			select {
			case <-ctx.Done():
				slog.Warn("classification cancelled; remaining batches not submitted",
					"processed", end, "total", len(reqs))
				e.logUsage(stats)
				return results, stats
			case <-time.After(e.opts.BatchDelay):
			}
		}
	}

	e.logUsage(stats)
	return results, stats
}

// classifyBatch sends one batch, retrying transient API failures with
// exponential backoff. On final failure every transaction in the batch
// degrades gracefully instead of aborting the job.
func (e *Engine) classifyBatch(ctx context.Context, batch []Request) []TierTwoResult {
	prompt := buildPrompt(batch)

	var raw string
	op := func() error {
		var err error
		raw, err = e.client.GenerateText(ctx, prompt)
		return err
	}
	policy := backoff.WithMaxRetries(backoff.WithContext(backoff.NewExponentialBackOff(), ctx), e.opts.MaxRetries)
	if err := backoff.Retry(op, policy); err != nil {
		slog.Warn("model call failed for batch", "size", len(batch), "error", err)
		return e.degradeBatch(batch, "model call failed: "+err.Error())
	}

	decoded, err := decodeResults(raw)
	if err != nil {
		slog.Warn("unusable model response for batch", "size", len(batch), "error", err)
		return e.degradeBatch(batch, "unusable model response: "+err.Error())
	}

	byID := make(map[string]wireResult, len(decoded))
	for _, w := range decoded {
		byID[w.ID] = w
	}

	results := make([]TierTwoResult, 0, len(batch))
	for _, req := range batch {
		w, ok := byID[req.ID]
		if !ok {
			results = append(results, degraded(req.ID, "missing from model response"))
			continue
		}
		results = append(results, e.validate(req, w))
	}
	return results
}

// validate turns a raw model answer into a trusted result: the category
// must be in the closed vocabulary and confidence is clamped to [0,1].
// External output never sets a tax category unvalidated.
func (e *Engine) validate(req Request, w wireResult) TierTwoResult {
	category, known := model.CanonicalCategory(w.Category)
	reasoning := strings.TrimSpace(w.Reasoning)
	if !known {
		category = model.Uncategorized
		if w.Category != "" {
			reasoning = "model proposed unknown category " + w.Category
		}
	}

	confidence := decimal.NewFromFloat(w.Confidence)
	if confidence.IsNegative() {
		confidence = decimal.Zero
	}
	if confidence.GreaterThan(decimal.NewFromInt(1)) {
		confidence = decimal.NewFromInt(1)
	}
	if category == model.Uncategorized {
		confidence = decimal.Zero
	}

	return TierTwoResult{
		ID: req.ID,
		Result: Result{
			Category:    category,
			Subcategory: w.Subcategory,
			Payee:       strings.TrimSpace(w.Vendor),
			Confidence:  confidence,
			NeedsReview: confidence.LessThan(e.opts.Threshold),
		},
		Reasoning: reasoning,
	}
}

func (e *Engine) degradeBatch(batch []Request, reason string) []TierTwoResult {
	out := make([]TierTwoResult, 0, len(batch))
	for _, req := range batch {
		out = append(out, degraded(req.ID, reason))
	}
	return out
}

func degraded(txnID, reason string) TierTwoResult {
	return TierTwoResult{
		ID: txnID,
		Result: Result{
			Confidence:  decimal.Zero,
			NeedsReview: true,
		},
		Reasoning: reason,
	}
}

// logUsage records the job in the audit log without ever blocking or
// failing the classification result.
func (e *Engine) logUsage(stats Stats) {
	if e.opts.AuditRoot == "" {
		return
	}
	entry := auditlog.Entry{
		Timestamp:  time.Now().UTC(),
		Model:      e.opts.Model,
		Batches:    stats.Batches,
		Submitted:  stats.Submitted,
		Classified: stats.Classified,
		Failed:     stats.Failed,
	}
	root := e.opts.AuditRoot
	go func() {
		if err := auditlog.Append(root, []auditlog.Entry{entry}); err != nil {
			slog.Warn("failed to write usage log", "error", err)
		}
	}()
}
