package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeCheck(t *testing.T, err error) *EnvelopeError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, perrors.ErrInvalidFormat), "got %v", err)
	var envErr *EnvelopeError
	require.True(t, errors.As(err, &envErr))
	return envErr
}

func TestDecode_ValidEnvelope(t *testing.T) {
	text := `{"version": {"major": 1, "minor": 2}, "status": 0, "boards": [{"board_name": "X"}], "extra": true}`

	env, err := Decode(text, FormatMajorVersion)
	require.NoError(t, err)
	require.NotNil(t, env)

	assert.Equal(t, FormatVersion{Major: 1, Minor: 2}, env.Version)
	assert.Equal(t, int64(0), env.Status)
	assert.True(t, env.Has(BoardsKey))
	assert.True(t, env.Has("extra"))
	assert.False(t, env.Has(TargetsKey))
	assert.Equal(t, 4, env.Keys())

	raw, ok := env.Raw(BoardsKey)
	require.True(t, ok)
	assert.JSONEq(t, `[{"board_name": "X"}]`, string(raw))
}

func TestDecode_MinorIsInformational(t *testing.T) {
	for _, minor := range []string{`0`, `99`, `"beta"`, `null`} {
		t.Run(minor, func(t *testing.T) {
			text := fmt.Sprintf(`{"version": {"major": 1, "minor": %s}, "status": 0}`, minor)
			_, err := Decode(text, 1)
			assert.NoError(t, err)
		})
	}

	env, err := Decode(`{"version": {"major": 1}, "status": 0}`, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), env.Version.Minor)
}

func TestDecode_ParseErrors(t *testing.T) {
	tests := []string{
		``,
		`{`,
		`not json`,
		`{"version": {"major": 1}, "status": 0} trailing`,
		`[1, 2, 3]`,
		`null`,
		`"text"`,
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			env, err := Decode(text, 1)
			assert.Nil(t, env)
			assert.True(t, errors.Is(err, perrors.ErrParse), "got %v", err)
		})
	}
}

func TestDecode_EnvelopeChecks(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check Check
	}{
		{"no version", `{"status": 0}`, CheckVersionMissing},
		{"null version", `{"version": null, "status": 0}`, CheckVersionMissing},
		{"version not object", `{"version": 1, "status": 0}`, CheckMajorMissing},
		{"no major", `{"version": {"minor": 1}, "status": 0}`, CheckMajorMissing},
		{"negative major", `{"version": {"major": -1}, "status": 0}`, CheckMajorMissing},
		{"fractional major", `{"version": {"major": 1.5}, "status": 0}`, CheckMajorMissing},
		{"string major", `{"version": {"major": "1"}, "status": 0}`, CheckMajorMissing},
		{"major mismatch", `{"version": {"major": 2}, "status": 0}`, CheckVersionMismatch},
		{"no status", `{"version": {"major": 1}}`, CheckStatusMissing},
		{"string status", `{"version": {"major": 1}, "status": "0"}`, CheckStatusMissing},
		{"nonzero status", `{"version": {"major": 1}, "status": 1}`, CheckStatusNonZero},
		// Version is checked before status.
		{"mismatch and nonzero status", `{"version": {"major": 3}, "status": 5}`, CheckVersionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode(tt.text, 1)
			assert.Nil(t, env)
			assert.Equal(t, tt.check, envelopeCheck(t, err).Check)
		})
	}
}

func TestDecode_VersionMismatchDetail(t *testing.T) {
	_, err := Decode(`{"version": {"major": 2, "minor": 0}, "status": 0, "boards": []}`, 1)
	envErr := envelopeCheck(t, err)

	assert.Equal(t, uint64(1), envErr.ExpectedMajor)
	assert.Equal(t, uint64(2), envErr.ActualMajor)
	assert.Contains(t, err.Error(), "unsupported data format version 2")
}

func TestDecode_ExpectedMajorIsConfigurable(t *testing.T) {
	_, err := Decode(`{"version": {"major": 2}, "status": 0}`, 2)
	assert.NoError(t, err)
}

func TestDecode_NonZeroStatusCarriesToolMessage(t *testing.T) {
	text := `{"version": {"major": 1, "minor": 0}, "status": 2, "error": "No probes found", "boards": [{"board_name": "X"}]}`

	env, err := Decode(text, 1)
	assert.Nil(t, env)
	envErr := envelopeCheck(t, err)
	assert.Equal(t, int64(2), envErr.Status)
	assert.Equal(t, "No probes found", envErr.ToolMessage)
	assert.Contains(t, err.Error(), "error 2: No probes found")
}

func TestDecode_NonZeroStatusWithoutMessage(t *testing.T) {
	_, err := Decode(`{"version": {"major": 1}, "status": -1, "error": 42}`, 1)
	envErr := envelopeCheck(t, err)
	assert.Empty(t, envErr.ToolMessage)
	assert.Contains(t, err.Error(), "unknown error")
}

func TestDecode_RoundTripsWellFormedEnvelopes(t *testing.T) {
	for minor := uint64(0); minor < 5; minor++ {
		doc := map[string]any{
			"version": map[string]any{"major": 1, "minor": minor},
			"status":  0,
			"targets": []any{map[string]any{"name": fmt.Sprintf("t%d", minor)}},
		}
		data, err := json.Marshal(doc)
		require.NoError(t, err)

		env, err := Decode(string(data), 1)
		require.NoError(t, err)
		assert.Equal(t, minor, env.Version.Minor)
		raw, ok := env.Raw(TargetsKey)
		require.True(t, ok)
		assert.JSONEq(t, fmt.Sprintf(`[{"name":"t%d"}]`, minor), string(raw))
	}
}

func TestArray(t *testing.T) {
	env, err := Decode(`{"version": {"major": 1}, "status": 0, "boards": [{"a": 1}, 2, null], "empty": [], "obj": {}, "str": "x"}`, 1)
	require.NoError(t, err)

	items, err := env.Array("boards")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `{"a": 1}`, string(items[0]))
	assert.Equal(t, "2", string(items[1]))
	assert.Equal(t, "null", string(items[2]))

	items, err = env.Array("empty")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = env.Array("targets")
	assert.True(t, errors.Is(err, perrors.ErrMissingKey))

	_, err = env.Array("obj")
	assert.True(t, errors.Is(err, perrors.ErrTypeMismatch))
	assert.Contains(t, err.Error(), "an object")

	_, err = env.Array("str")
	assert.True(t, errors.Is(err, perrors.ErrTypeMismatch))
}

func TestEnvelopeErrorMessages(t *testing.T) {
	assert.Equal(t, "no data format version", (&EnvelopeError{Check: CheckVersionMissing}).Error())
	assert.Equal(t, "no data format major version", (&EnvelopeError{Check: CheckMajorMissing}).Error())
	assert.Equal(t, "no status", (&EnvelopeError{Check: CheckStatusMissing}).Error())
	assert.Equal(t, "status is not an integer: true", (&EnvelopeError{Check: CheckStatusMissing, Detail: "true"}).Error())
}
