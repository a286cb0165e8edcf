// Package pipeline orchestrates credential verification over a
// confidence-scored extraction result: it selects candidate fields by
// policy, gates them on extraction confidence, fans lookups out to the
// verifier, and annotates the result in place.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/credverify/internal/model"
	"github.com/sells-group/credverify/internal/policy"
	"github.com/sells-group/credverify/internal/verify"
)

// DefaultConfidenceThreshold gates verification on extraction confidence.
const DefaultConfidenceThreshold = 0.70

// Verify is the verification step of the processing pipeline.
type Verify struct {
	verifier    *verify.Verifier
	policies    *policy.Set
	threshold   float64
	enabled     bool
	concurrency int
	now         func() time.Time
}

// Option configures the step.
type Option func(*Verify)

// WithThreshold overrides the confidence threshold.
func WithThreshold(t float64) Option {
	return func(v *Verify) {
		v.threshold = t
	}
}

// WithEnabled toggles verification globally.
func WithEnabled(enabled bool) Option {
	return func(v *Verify) {
		v.enabled = enabled
	}
}

// WithConcurrency bounds the per-field lookup fan-out.
func WithConcurrency(n int) Option {
	return func(v *Verify) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verify) {
		v.now = now
	}
}

// NewVerify creates the verification step.
func NewVerify(verifier *verify.Verifier, policies *policy.Set, opts ...Option) *Verify {
	v := &Verify{
		verifier:    verifier,
		policies:    policies,
		threshold:   DefaultConfidenceThreshold,
		enabled:     true,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Output is what the step hands back to the surrounding pipeline. A skipped
// output leaves the extraction result untouched.
type Output struct {
	Result     string                  `json:"result"` // "success" or "skipped"
	Message    string                  `json:"message,omitempty"`
	Extraction *model.ExtractionResult `json:"-"`
	Summary    *verify.Summary         `json:"verification_metadata,omitempty"`
}

// Skipped reports whether the run was a passthrough.
func (o *Output) Skipped() bool {
	return o.Result == "skipped"
}

// Payload renders the annotated extraction result plus the verification
// summary in the shape downstream consumers read.
func (o *Output) Payload() ([]byte, error) {
	payload := map[string]any{
		"result": o.Result,
	}
	if o.Message != "" {
		payload["message"] = o.Message
	}
	if o.Extraction != nil {
		payload["extracted_result"] = o.Extraction.ExtractedResult
		payload["confidence"] = o.Extraction.Confidence
		payload["comparison_result"] = o.Extraction.Comparison
		payload["prompt_tokens"] = o.Extraction.PromptTokens
		payload["completion_tokens"] = o.Extraction.CompletionTokens
	}
	if o.Summary != nil {
		payload["verification_metadata"] = o.Summary
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "verify step: marshal payload")
	}
	return data, nil
}

// Run verifies the eligible fields of an extraction result. It never fails
// the surrounding pipeline: policy gaps, malformed input, and internal
// errors all produce a passthrough output with the input unchanged.
func (v *Verify) Run(ctx context.Context, schemaID string, res *model.ExtractionResult) (out *Output) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("verify step: recovered from panic",
				zap.String("schema_id", schemaID),
				zap.Any("panic", r),
			)
			out = passthrough(res, "verification failed unexpectedly")
		}
	}()

	if !v.enabled {
		zap.L().Info("verify step: verification disabled in configuration")
		return passthrough(res, "verification disabled in configuration")
	}
	if res == nil || res.Comparison == nil {
		zap.L().Warn("verify step: malformed extraction result", zap.String("schema_id", schemaID))
		return passthrough(res, "extraction result has no comparison data")
	}

	schemaPolicy := v.policies.ForSchema(schemaID)
	if !schemaPolicy.Enabled() {
		zap.L().Info("verify step: no verification configured for schema",
			zap.String("schema_id", schemaID),
		)
		return passthrough(res, fmt.Sprintf("no verification configured for schema %s", schemaID))
	}

	rule, ok := schemaPolicy.Domains[verify.DomainPhysician]
	if !ok {
		return passthrough(res, fmt.Sprintf("no supported verification domains for schema %s", schemaID))
	}

	var candidates []*model.ComparisonItem
	for _, item := range res.Comparison.Items {
		if item != nil && rule.MatchesField(item.Field) {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		zap.L().Info("verify step: no matching fields",
			zap.String("schema_id", schemaID),
			zap.Int("items", len(res.Comparison.Items)),
		)
	}

	outcomes := make([]*verify.Outcome, len(candidates))

	// Field lookups are independent; a timeout on one never cancels its
	// siblings, so the group context is deliberately not shared.
	g := new(errgroup.Group)
	g.SetLimit(v.concurrency)
	var mu sync.Mutex
	for i, item := range candidates {
		g.Go(func() error {
			// errgroup does not recover worker panics, so a panicking
			// lookup would crash the process. Degrade it to an ERROR
			// outcome for this field and let siblings finish.
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("verify step: field lookup panicked",
						zap.String("field", item.Field),
						zap.Any("panic", r),
					)
					mu.Lock()
					outcomes[i] = v.panicOutcome(item, r)
					mu.Unlock()
				}
			}()
			outcome := v.verifyField(ctx, item)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, item := range candidates {
		annotate(item, outcomes[i])
	}

	summary := verify.Summarize(outcomes, v.now())
	zap.L().Info("verify step: complete",
		zap.String("schema_id", schemaID),
		zap.Int("fields_checked", summary.TotalFieldsChecked),
		zap.Int("verified", summary.VerifiedCount),
		zap.Int("api_calls", summary.TotalAPICalls),
	)

	return &Output{
		Result:     "success",
		Extraction: res,
		Summary:    summary,
	}
}

// verifyField gates one field on confidence and routes it to the verifier
// by field-name heuristic.
func (v *Verify) verifyField(ctx context.Context, item *model.ComparisonItem) *verify.Outcome {
	fieldName := strings.ToLower(item.Field)
	conf := item.ConfidenceValue()

	if conf < v.threshold {
		return v.skippedOutcome(item,
			fmt.Sprintf("Confidence %.2f%% below threshold %.2f%%", conf*100, v.threshold*100))
	}

	req := verify.Request{
		FieldName:  item.Field,
		Confidence: conf,
	}
	switch {
	case strings.Contains(fieldName, "npi"):
		req.NPINumber = item.ExtractedString()
	case strings.Contains(fieldName, "license"):
		if item.State == "" {
			return v.skippedOutcome(item, "State license verification requires state code")
		}
		req.LicenseNumber = item.ExtractedString()
		req.State = item.State
	default:
		req.ProviderName = item.ExtractedString()
		req.State = item.State
	}

	return v.verifier.Verify(ctx, req)
}

// panicOutcome converts a panicking field lookup into an ERROR outcome so
// the run still completes for the remaining fields.
func (v *Verify) panicOutcome(item *model.ComparisonItem, cause any) *verify.Outcome {
	return &verify.Outcome{
		FieldName:      item.Field,
		ExtractedValue: item.Extracted,
		Domain:         verify.DomainPhysician,
		Status:         verify.StatusError,
		ErrorMessage:   fmt.Sprintf("unexpected failure: %v", cause),
		Timestamp:      v.now().UTC().Format(time.RFC3339),
	}
}

// skippedOutcome builds a policy-gated outcome that issued no lookup.
func (v *Verify) skippedOutcome(item *model.ComparisonItem, msg string) *verify.Outcome {
	return &verify.Outcome{
		FieldName:      item.Field,
		ExtractedValue: item.Extracted,
		Domain:         verify.DomainPhysician,
		Status:         verify.StatusSkipped,
		ErrorMessage:   msg,
		Timestamp:      v.now().UTC().Format(time.RFC3339),
	}
}

// annotate writes a verification outcome back onto its comparison item.
func annotate(item *model.ComparisonItem, outcome *verify.Outcome) {
	if outcome == nil {
		return
	}
	item.VerificationStatus = outcome.Status.String()
	item.VerificationDetails = outcome.Details
	item.VerifiedAt = outcome.Timestamp
	item.VerificationResponseTime = outcome.ElapsedMS
}

func passthrough(res *model.ExtractionResult, msg string) *Output {
	return &Output{
		Result:     "skipped",
		Message:    msg,
		Extraction: res,
	}
}
