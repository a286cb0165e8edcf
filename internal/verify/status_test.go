package verify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "verified", StatusVerified.String())
	assert.Equal(t, "not_found", StatusNotFound.String())
	assert.Equal(t, "invalid", StatusInvalid.String())
	assert.Equal(t, "expired", StatusExpired.String())
	assert.Equal(t, "revoked", StatusRevoked.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestStatusJSONRoundTrip(t *testing.T) {
	for _, st := range AllStatuses {
		data, err := json.Marshal(st)
		require.NoError(t, err)

		var back Status
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, st, back)
	}
}

func TestStatusUnmarshalUnknown(t *testing.T) {
	var st Status
	err := json.Unmarshal([]byte(`"bogus"`), &st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestStatusMarshalInOutcome(t *testing.T) {
	o := Outcome{FieldName: "physician_npi", Status: StatusVerified}
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"verified"`)
}
