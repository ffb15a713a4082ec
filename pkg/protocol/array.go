package protocol

import (
	"bytes"
	"encoding/json"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
)

// Array returns the elements of the top-level array stored under key, each
// left undecoded for projection.
func (e *Envelope) Array(key string) ([]json.RawMessage, error) {
	raw, ok := e.fields[key]
	if !ok {
		return nil, perrors.Newf(perrors.KindMissingKey, "no %q in output", key)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, perrors.Newf(perrors.KindTypeMismatch, "%q is %s, not an array", key, jsonKind(trimmed))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, perrors.Wrap(perrors.KindTypeMismatch, "decode "+key, err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

func jsonKind(raw []byte) string {
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '{':
		return "an object"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}
