package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/credverify/pkg/npi"
	"github.com/sells-group/credverify/pkg/statelicense"
)

func fixedClock(base time.Time, step time.Duration) func() time.Time {
	t := base
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func TestVerifierShortCircuitsOnVerified(t *testing.T) {
	reg := registryWith(activeRecord())
	v := New(reg, &fakeBoard{configured: true}, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{
		FieldName:    "physician_npi",
		NPINumber:    "1234567890",
		ProviderName: "Jane Smith",
		State:        "CA",
	})

	assert.Equal(t, StatusVerified, out.Status)
	assert.Equal(t, 1, reg.numberCalls)
	assert.Equal(t, 0, reg.nameCalls)
}

func TestVerifierSurfacesLastApplicableOutcome(t *testing.T) {
	rec := activeRecord()
	rec.Basic.Status = "D"
	v := New(registryWith(rec), &fakeBoard{}, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{
		FieldName: "physician_npi",
		NPINumber: "1234567890",
	})

	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "NPI status is not Active", out.Details["reason"])
}

func TestVerifierFallsThroughToNameSearch(t *testing.T) {
	reg := registryWith(activeRecord())
	board := &fakeBoard{configured: false}
	v := New(reg, board, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{
		FieldName:     "physician_name",
		ProviderName:  "Jane Smith",
		LicenseNumber: "A-12345",
		State:         "CA",
	})

	assert.Equal(t, StatusVerified, out.Status)
	assert.Equal(t, "name_and_jurisdiction", out.Details["verification_method"])
	assert.Equal(t, 1, reg.nameCalls)
}

func TestVerifierNoIdentifiers(t *testing.T) {
	v := New(registryWith(), &fakeBoard{}, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{FieldName: "physician_name"})

	assert.Equal(t, StatusNotFound, out.Status)
	assert.Equal(t, "no verifiable identifiers provided", out.ErrorMessage)
}

func TestVerifierTimeoutMessage(t *testing.T) {
	reg := &fakeRegistry{
		byNumber: func(context.Context, string) (*npi.SearchResponse, error) {
			return nil, context.DeadlineExceeded
		},
	}
	v := New(reg, &fakeBoard{}, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{NPINumber: "1234567890"})

	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, "API timeout", out.ErrorMessage)
	assert.True(t, out.APICall)
}

func TestVerifierLookupErrorBecomesOutcome(t *testing.T) {
	board := &fakeBoard{
		configured: true,
		verify: func(context.Context, string, string) (*statelicense.Result, error) {
			return nil, assert.AnError
		},
	}
	v := New(registryWith(), board, NewMemoryCache(0))

	out := v.Verify(context.Background(), Request{LicenseNumber: "A-12345", State: "CA"})

	assert.Equal(t, StatusError, out.Status)
	assert.NotEmpty(t, out.ErrorMessage)
}

func TestVerifierFinalizeStampsIdentity(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := New(registryWith(activeRecord()), &fakeBoard{}, NewMemoryCache(0),
		WithClock(fixedClock(base, 250*time.Millisecond)),
	)

	out := v.Verify(context.Background(), Request{
		FieldName: "physician_npi",
		NPINumber: "1234567890",
	})

	assert.Equal(t, "physician_npi", out.FieldName)
	assert.Equal(t, "1234567890", out.ExtractedValue)
	assert.Equal(t, DomainPhysician, out.Domain)
	assert.Equal(t, "2025-06-01T12:00:00Z", out.Timestamp)
	assert.Greater(t, out.ElapsedMS, 0.0)
}

func TestVerifierExtractedValuePreference(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"npi first", Request{NPINumber: "1", LicenseNumber: "L", ProviderName: "N"}, "1"},
		{"license next", Request{LicenseNumber: "L", ProviderName: "N"}, "L"},
		{"name last", Request{ProviderName: "N"}, "N"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.extractedValue())
		})
	}
}

func TestVerifierCustomStrategies(t *testing.T) {
	called := false
	v := New(nil, nil, nil, WithStrategies(strategyFunc{
		name:       "custom",
		applicable: func(Request) bool { return true },
		verify: func(context.Context, Request) (*Outcome, error) {
			called = true
			return &Outcome{Status: StatusVerified}, nil
		},
	}))

	out := v.Verify(context.Background(), Request{FieldName: "f"})
	require.True(t, called)
	assert.Equal(t, StatusVerified, out.Status)
}

// strategyFunc adapts closures to the Strategy interface for tests.
type strategyFunc struct {
	name       string
	applicable func(Request) bool
	verify     func(context.Context, Request) (*Outcome, error)
}

func (s strategyFunc) Name() string { return s.name }
func (s strategyFunc) Applicable(req Request) bool { return s.applicable(req) }
func (s strategyFunc) Verify(ctx context.Context, req Request) (*Outcome, error) {
	return s.verify(ctx, req)
}
