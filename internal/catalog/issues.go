package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes
const (
	CodeRequired    = "required"
	CodeUnknownKey  = "unknown_key"
	CodeInvalidType = "invalid_type"
	CodeSchema      = "schema"
)

// Issue is a single validation failure. Path is a JSON Pointer into the
// validated value, or "/<name>" for a request parameter.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Issues is a collection of validation failures that implements error
type Issues []Issue

// Error summarizes the first few issues
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	var b strings.Builder
	lim := len(iss)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		path := iss[i].Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(&b, "%s at %s: %s", iss[i].Code, path, iss[i].Message)
	}
	if len(iss) > lim {
		fmt.Fprintf(&b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// AsIssues extracts Issues from err
func AsIssues(err error) (Issues, bool) {
	var iss Issues
	if err != nil && errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
