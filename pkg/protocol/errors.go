package protocol

import "fmt"

// Check identifies which envelope invariant failed.
type Check string

const (
	CheckVersionMissing  Check = "version_missing"
	CheckMajorMissing    Check = "major_missing"
	CheckVersionMismatch Check = "version_mismatch"
	CheckStatusMissing   Check = "status_missing"
	CheckStatusNonZero   Check = "status_nonzero"
)

// EnvelopeError describes a rejected envelope. It is always wrapped in an
// errors.Error of kind INVALID_FORMAT.
type EnvelopeError struct {
	Check         Check
	ExpectedMajor uint64
	ActualMajor   uint64
	Status        int64
	// ToolMessage is the envelope's optional "error" field.
	ToolMessage string
	// Detail holds the offending raw value when it had the wrong type.
	Detail string
}

func (e *EnvelopeError) Error() string {
	switch e.Check {
	case CheckVersionMissing:
		return "no data format version"
	case CheckMajorMissing:
		if e.Detail != "" {
			return fmt.Sprintf("data format major version is not an unsigned integer: %s", e.Detail)
		}
		return "no data format major version"
	case CheckVersionMismatch:
		return fmt.Sprintf("unsupported data format version %d (expected %d)", e.ActualMajor, e.ExpectedMajor)
	case CheckStatusMissing:
		if e.Detail != "" {
			return fmt.Sprintf("status is not an integer: %s", e.Detail)
		}
		return "no status"
	case CheckStatusNonZero:
		msg := e.ToolMessage
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Sprintf("error %d: %s", e.Status, msg)
	default:
		return string(e.Check)
	}
}
