package verify

import "time"

// Domain identifies the credential domain an outcome belongs to.
// Physician is the only domain implemented today; the summary breakdown is
// keyed by these values.
const DomainPhysician = "physician"

// Request carries the identifying attributes extracted for one field.
// Any subset may be present; the verifier picks the strongest applicable
// lookup strategy.
type Request struct {
	FieldName     string
	ProviderName  string
	NPINumber     string
	LicenseNumber string
	State         string
	Confidence    float64
}

// extractedValue returns the raw value the outcome reports, strongest
// identifier first.
func (r Request) extractedValue() string {
	switch {
	case r.NPINumber != "":
		return r.NPINumber
	case r.LicenseNumber != "":
		return r.LicenseNumber
	default:
		return r.ProviderName
	}
}

// Outcome is the result of verifying a single field.
type Outcome struct {
	FieldName      string         `json:"field_name"`
	ExtractedValue any            `json:"extracted_value"`
	Domain         string         `json:"verification_type"`
	Status         Status         `json:"status"`
	Details        map[string]any `json:"details,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Timestamp      string         `json:"timestamp"`
	ElapsedMS      float64        `json:"api_response_time"`

	// APICall records whether this outcome issued a registry lookup
	// (cache hits count; policy skips do not).
	APICall bool `json:"-"`
}

// DomainCounts is the per-domain tally inside a Summary.
type DomainCounts struct {
	Verified int `json:"verified"`
	NotFound int `json:"not_found"`
	Error    int `json:"error"`
	Skipped  int `json:"skipped"`
}

// Summary aggregates the outcomes of one verification run.
type Summary struct {
	TotalFieldsChecked int                     `json:"total_fields_checked"`
	VerifiedCount      int                     `json:"verified_count"`
	NotFoundCount      int                     `json:"not_found_count"`
	InvalidCount       int                     `json:"invalid_count"`
	ExpiredCount       int                     `json:"expired_count"`
	RevokedCount       int                     `json:"revoked_count"`
	ErrorCount         int                     `json:"error_count"`
	SkippedCount       int                     `json:"skipped_count"`
	TotalAPICalls      int                     `json:"total_api_calls"`
	TotalAPITimeMS     float64                 `json:"total_api_time"`
	Timestamp          string                  `json:"verification_timestamp"`
	ByDomain           map[string]DomainCounts `json:"verifications_by_type"`
}

// Summarize tallies outcomes into a Summary. Every status is counted
// exhaustively; TotalAPICalls counts only outcomes that issued a lookup.
func Summarize(outcomes []*Outcome, now time.Time) *Summary {
	s := &Summary{
		TotalFieldsChecked: len(outcomes),
		Timestamp:          now.UTC().Format(time.RFC3339),
		ByDomain:           map[string]DomainCounts{},
	}

	for _, o := range outcomes {
		switch o.Status {
		case StatusVerified:
			s.VerifiedCount++
		case StatusNotFound:
			s.NotFoundCount++
		case StatusInvalid:
			s.InvalidCount++
		case StatusExpired:
			s.ExpiredCount++
		case StatusRevoked:
			s.RevokedCount++
		case StatusError:
			s.ErrorCount++
		case StatusSkipped:
			s.SkippedCount++
		}
		if o.APICall {
			s.TotalAPICalls++
		}
		s.TotalAPITimeMS += o.ElapsedMS

		dc := s.ByDomain[o.Domain]
		switch o.Status {
		case StatusVerified:
			dc.Verified++
		case StatusNotFound:
			dc.NotFound++
		case StatusError:
			dc.Error++
		case StatusSkipped:
			dc.Skipped++
		case StatusInvalid, StatusExpired, StatusRevoked:
			// Counted in the top-level tallies only.
		}
		s.ByDomain[o.Domain] = dc
	}
	return s
}
