package feed

import (
	"fmt"
	"strings"
)

// Kind classifies a fetch failure
type Kind string

const (
	KindInvalidParams Kind = "invalid_params"
	KindNetwork       Kind = "network"
	KindTimeout       Kind = "timeout"
	KindAPI           Kind = "api"
	KindDecode        Kind = "decode"
	KindValidation    Kind = "validation"
)

// Error describes a failed fetch of one endpoint. URL never carries the
// access code.
type Error struct {
	Kind     Kind
	API      string
	Function string
	URL      string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "feed: %s/%s: %s", e.API, e.Function, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
