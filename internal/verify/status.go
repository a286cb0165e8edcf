package verify

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Status is the closed set of verification outcomes.
type Status int

const (
	// StatusVerified means the credential was found and is valid.
	StatusVerified Status = iota
	// StatusNotFound means the credential is absent from the registry.
	StatusNotFound
	// StatusInvalid means the credential was found but is semantically
	// wrong: inactive status, ambiguous match, unparseable name.
	StatusInvalid
	// StatusExpired means the license was found but has lapsed.
	StatusExpired
	// StatusRevoked means the license was revoked or suspended.
	StatusRevoked
	// StatusError means a transport, timeout, or unexpected failure.
	StatusError
	// StatusSkipped means verification was gated off by policy: low
	// confidence, unconfigured capability, or a missing companion field.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusVerified: "verified",
	StatusNotFound: "not_found",
	StatusInvalid:  "invalid",
	StatusExpired:  "expired",
	StatusRevoked:  "revoked",
	StatusError:    "error",
	StatusSkipped:  "skipped",
}

// AllStatuses lists every status in declaration order, for exhaustive
// tallying.
var AllStatuses = []Status{
	StatusVerified,
	StatusNotFound,
	StatusInvalid,
	StatusExpired,
	StatusRevoked,
	StatusError,
	StatusSkipped,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the status as its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire name back into a Status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return eris.Wrap(err, "verify: unmarshal status")
	}
	for st, n := range statusNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return eris.Errorf("verify: unknown status %q", name)
}
