// Package protocol decodes and validates the versioned JSON envelope that
// pyocd writes for its "json" subcommands.
//
// The envelope is gated strictly: the document must be a JSON object whose
// version.major matches the expected data format and whose status is zero.
// Any violation rejects the whole document.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
)

// FormatMajorVersion is the latest major version of the data format.
const FormatMajorVersion uint64 = 1

// Top-level envelope keys.
const (
	VersionKey      = "version"
	VersionMajorKey = "major"
	VersionMinorKey = "minor"
	StatusKey       = "status"
	ErrorKey        = "error"
	BoardsKey       = "boards"
	TargetsKey      = "targets"
)

// FormatVersion is the envelope's data format version. Only Major gates
// compatibility.
type FormatVersion struct {
	Major uint64
	Minor uint64
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Envelope is a validated top-level document.
type Envelope struct {
	Version FormatVersion
	Status  int64
	fields  map[string]json.RawMessage
}

// Has reports whether key is present at the top level.
func (e *Envelope) Has(key string) bool {
	_, ok := e.fields[key]
	return ok
}

// Raw returns the undecoded value stored under key.
func (e *Envelope) Raw(key string) (json.RawMessage, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Keys returns the number of top-level keys.
func (e *Envelope) Keys() int {
	return len(e.fields)
}

// Decode parses text and validates the envelope against expectedMajor.
//
// Checks run in order and the first failure wins: version.major present,
// version.major == expectedMajor, status present, status == 0.
func Decode(text string, expectedMajor uint64) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, perrors.Wrap(perrors.KindParse, "malformed JSON output", err)
	}
	if fields == nil {
		return nil, perrors.New(perrors.KindParse, "output is not a JSON object")
	}

	version, err := decodeVersion(fields, expectedMajor)
	if err != nil {
		return nil, err
	}
	status, err := decodeStatus(fields)
	if err != nil {
		return nil, err
	}

	return &Envelope{Version: version, Status: status, fields: fields}, nil
}

func decodeVersion(fields map[string]json.RawMessage, expectedMajor uint64) (FormatVersion, error) {
	raw, ok := fields[VersionKey]
	if !ok || isNull(raw) {
		return FormatVersion{}, invalid(&EnvelopeError{Check: CheckVersionMissing})
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return FormatVersion{}, invalid(&EnvelopeError{Check: CheckMajorMissing})
	}

	majorRaw, ok := obj[VersionMajorKey]
	if !ok {
		return FormatVersion{}, invalid(&EnvelopeError{Check: CheckMajorMissing})
	}
	major, ok := parseUint(majorRaw)
	if !ok {
		return FormatVersion{}, invalid(&EnvelopeError{Check: CheckMajorMissing, Detail: string(majorRaw)})
	}
	if major != expectedMajor {
		return FormatVersion{}, invalid(&EnvelopeError{Check: CheckVersionMismatch, ExpectedMajor: expectedMajor, ActualMajor: major})
	}

	v := FormatVersion{Major: major}
	if minorRaw, ok := obj[VersionMinorKey]; ok {
		// Minor is informational; an unreadable value is treated as 0.
		v.Minor, _ = parseUint(minorRaw)
	}
	return v, nil
}

func decodeStatus(fields map[string]json.RawMessage) (int64, error) {
	raw, ok := fields[StatusKey]
	if !ok || isNull(raw) {
		return 0, invalid(&EnvelopeError{Check: CheckStatusMissing, ToolMessage: toolMessage(fields)})
	}
	status, ok := parseInt(raw)
	if !ok {
		return 0, invalid(&EnvelopeError{Check: CheckStatusMissing, Detail: string(raw), ToolMessage: toolMessage(fields)})
	}
	if status != 0 {
		return 0, invalid(&EnvelopeError{Check: CheckStatusNonZero, Status: status, ToolMessage: toolMessage(fields)})
	}
	return status, nil
}

func invalid(e *EnvelopeError) error {
	return perrors.Wrap(perrors.KindInvalidFormat, "invalid envelope", e)
}

// toolMessage returns the optional "error" string, or "" when absent or not a string.
func toolMessage(fields map[string]json.RawMessage) string {
	raw, ok := fields[ErrorKey]
	if !ok {
		return ""
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ""
	}
	return msg
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseUint accepts only JSON integer literals that fit in a uint64.
func parseUint(raw json.RawMessage) (uint64, bool) {
	n, ok := numberLiteral(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(n, 10, 64)
	return v, err == nil
}

// parseInt accepts only JSON integer literals that fit in an int64.
func parseInt(raw json.RawMessage) (int64, bool) {
	n, ok := numberLiteral(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(n, 10, 64)
	return v, err == nil
}

func numberLiteral(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	if !ok {
		return "", false
	}
	return n.String(), true
}
