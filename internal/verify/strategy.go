package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/credverify/pkg/npi"
	"github.com/sells-group/credverify/pkg/statelicense"
)

// Strategy is one named credential lookup. Applicable reports whether the
// request carries the identifiers this strategy needs; Verify performs the
// lookup. The Verifier tries strategies in priority order and stops at the
// first VERIFIED outcome.
type Strategy interface {
	Name() string
	Applicable(req Request) bool
	Verify(ctx context.Context, req Request) (*Outcome, error)
}

// npiNumberStrategy verifies by exact NPI number against the national
// registry, consulting the shared cache first.
type npiNumberStrategy struct {
	registry npi.Client
	cache    Cache
}

func (s *npiNumberStrategy) Name() string { return "npi_number" }

func (s *npiNumberStrategy) Applicable(req Request) bool {
	return req.NPINumber != ""
}

func (s *npiNumberStrategy) Verify(ctx context.Context, req Request) (*Outcome, error) {
	if cached, ok := s.cache.Get(req.NPINumber); ok {
		details := make(map[string]any, len(cached)+1)
		for k, v := range cached {
			details[k] = v
		}
		details["cached"] = true
		return &Outcome{Status: StatusVerified, Details: details, APICall: true}, nil
	}

	resp, err := s.registry.ByNumber(ctx, req.NPINumber)
	if err != nil {
		return nil, err
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return &Outcome{Status: StatusNotFound, APICall: true}, nil
	}

	record := resp.Results[0]
	if !record.Active() {
		return &Outcome{
			Status: StatusInvalid,
			Details: map[string]any{
				"reason":     "NPI status is not Active",
				"npi_status": record.Basic.Status,
			},
			APICall: true,
		}, nil
	}

	details := recordDetails(record)
	s.cache.Put(req.NPINumber, details)

	withFlag := make(map[string]any, len(details)+1)
	for k, v := range details {
		withFlag[k] = v
	}
	withFlag["cached"] = false
	return &Outcome{Status: StatusVerified, Details: withFlag, APICall: true}, nil
}

// stateLicenseStrategy verifies a state-issued license against the issuing
// board, when one is configured.
type stateLicenseStrategy struct {
	board statelicense.Client
}

func (s *stateLicenseStrategy) Name() string { return "state_license" }

func (s *stateLicenseStrategy) Applicable(req Request) bool {
	return req.LicenseNumber != "" && req.State != ""
}

func (s *stateLicenseStrategy) Verify(ctx context.Context, req Request) (*Outcome, error) {
	if !s.board.Configured() {
		// Not an error: the capability is intentionally unconfigured.
		return &Outcome{
			Status:       StatusSkipped,
			ErrorMessage: "State license API not configured",
		}, nil
	}

	result, err := s.board.Verify(ctx, req.LicenseNumber, req.State)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Details: result.Raw, APICall: true}
	switch result.Status {
	case "active":
		outcome.Status = StatusVerified
	case "expired":
		outcome.Status = StatusExpired
	case "revoked", "suspended":
		outcome.Status = StatusRevoked
	default:
		outcome.Status = StatusNotFound
		outcome.Details = nil
	}
	return outcome, nil
}

// nameStateStrategy is the weakest fallback: search the national registry by
// parsed first/last name plus state, then disambiguate exact matches.
type nameStateStrategy struct {
	registry    npi.Client
	resultLimit int
}

func (s *nameStateStrategy) Name() string { return "name_and_jurisdiction" }

func (s *nameStateStrategy) Applicable(req Request) bool {
	return req.ProviderName != "" && req.State != ""
}

func (s *nameStateStrategy) Verify(ctx context.Context, req Request) (*Outcome, error) {
	first, last, err := parseName(req.ProviderName)
	if err != nil {
		zap.L().Debug("verify: name parse failed",
			zap.String("field", req.FieldName),
			zap.Error(err),
		)
		return &Outcome{
			Status:       StatusError,
			ErrorMessage: "unable to parse first and last name",
		}, nil
	}

	resp, err := s.registry.ByName(ctx, first, last, req.State, s.resultLimit)
	if err != nil {
		return nil, eris.Wrap(err, "verify: name search")
	}

	var exact, exactActive []npi.Record
	for _, r := range resp.Results {
		if strings.EqualFold(r.Basic.FirstName, first) && strings.EqualFold(r.Basic.LastName, last) {
			exact = append(exact, r)
			if r.Active() {
				exactActive = append(exactActive, r)
			}
		}
	}

	if len(exact) == 0 {
		return &Outcome{
			Status:       StatusNotFound,
			ErrorMessage: fmt.Sprintf("found %d similar providers but no exact name match", resp.ResultCount),
			APICall:      true,
		}, nil
	}

	// Prefer active records; fall back to all exact matches when none are
	// active. Either way, only a single unambiguous match verifies.
	candidates := exactActive
	if len(candidates) == 0 {
		candidates = exact
	}

	if len(candidates) > 1 {
		return &Outcome{
			Status:       StatusInvalid,
			ErrorMessage: "multiple providers found, cannot verify without a registry number or license",
			Details:      map[string]any{"match_count": len(candidates)},
			APICall:      true,
		}, nil
	}

	details := recordDetails(candidates[0])
	details["verification_method"] = "name_and_jurisdiction"
	details["cached"] = false
	return &Outcome{Status: StatusVerified, Details: details, APICall: true}, nil
}

// recordDetails normalizes a registry record into the details payload.
func recordDetails(r npi.Record) map[string]any {
	details := map[string]any{
		"npi":        fmt.Sprintf("%d", r.Number),
		"name":       displayName(r.Basic.FirstName, r.Basic.LastName),
		"credential": r.Basic.Credential,
		"status":     "Active",
	}
	if !r.Active() {
		details["status"] = r.Basic.Status
	}
	if len(r.Taxonomies) > 0 {
		details["specialty"] = r.Taxonomies[0].Desc
	}
	return details
}
