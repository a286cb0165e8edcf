// Package verify implements multi-strategy credential verification against
// external registries: by NPI number, by state license, and by provider
// name plus state, in that priority order.
package verify

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/credverify/pkg/npi"
	"github.com/sells-group/credverify/pkg/statelicense"
)

const defaultNameResultLimit = 10

// Verifier runs the ordered strategy chain for one request at a time.
// It is safe for concurrent use.
type Verifier struct {
	strategies []Strategy
	timeout    time.Duration
	now        func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTimeout bounds each verification request, including all strategy
// lookups it issues.
func WithTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.timeout = d
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithStrategies replaces the default strategy chain.
func WithStrategies(strategies ...Strategy) VerifierOption {
	return func(v *Verifier) {
		v.strategies = strategies
	}
}

// New creates a Verifier over the given registry clients and cache.
func New(registry npi.Client, board statelicense.Client, cache Cache, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		strategies: []Strategy{
			&npiNumberStrategy{registry: registry, cache: cache},
			&stateLicenseStrategy{board: board},
			&nameStateStrategy{registry: registry, resultLimit: defaultNameResultLimit},
		},
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the strategy chain for one request. It always returns an
// outcome: lookup failures become ERROR outcomes, and a request with no
// usable identifiers becomes NOT_FOUND.
func (v *Verifier) Verify(ctx context.Context, req Request) *Outcome {
	start := v.now()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var last *Outcome
	for _, s := range v.strategies {
		if !s.Applicable(req) {
			continue
		}

		outcome, err := s.Verify(ctx, req)
		if err != nil {
			return v.finalize(v.errorOutcome(err), req, start)
		}

		if outcome.Status == StatusVerified {
			zap.L().Debug("verify: field verified",
				zap.String("field", req.FieldName),
				zap.String("strategy", s.Name()),
			)
			return v.finalize(outcome, req, start)
		}
		last = outcome
	}

	if last != nil {
		return v.finalize(last, req, start)
	}
	return v.finalize(&Outcome{
		Status:       StatusNotFound,
		ErrorMessage: "no verifiable identifiers provided",
	}, req, start)
}

// errorOutcome converts a lookup failure into an ERROR outcome, mapping
// timeouts to the fixed "API timeout" message.
func (v *Verifier) errorOutcome(err error) *Outcome {
	msg := err.Error()
	if isTimeout(err) {
		msg = "API timeout"
	}
	return &Outcome{
		Status:       StatusError,
		ErrorMessage: msg,
		APICall:      true,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// finalize stamps the request identity, timestamp, and elapsed time onto an
// outcome.
func (v *Verifier) finalize(o *Outcome, req Request, start time.Time) *Outcome {
	o.FieldName = req.FieldName
	o.ExtractedValue = req.extractedValue()
	o.Domain = DomainPhysician
	o.Timestamp = v.now().UTC().Format(time.RFC3339)
	o.ElapsedMS = float64(v.now().Sub(start)) / float64(time.Millisecond)
	return o
}
