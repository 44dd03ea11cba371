package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/titanous/json5"

	"github.com/wsdottie/dottie-go/internal/repair"
	"github.com/wsdottie/dottie-go/internal/value"
)

// Tier identifies the stage of the fallback chain that produced a value
type Tier int

const (
	TierNone Tier = iota
	TierStrict
	TierLenient
	TierRepair
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierLenient:
		return "lenient"
	case TierRepair:
		return "repair"
	}
	return "none"
}

// ErrUndecodable matches every error returned by Decode
var ErrUndecodable = errors.New("text is not decodable as JSON")

// Error reports that no tier could decode the text. It carries the strict
// parse error, which points at the actual defect in the payload; errors from
// the fallback tiers are dropped.
type Error struct {
	Strict error
}

func (e *Error) Error() string        { return e.Strict.Error() }
func (e *Error) Unwrap() error        { return e.Strict }
func (e *Error) Is(target error) bool { return target == ErrUndecodable }

// ParseFunc decodes text into a value
type ParseFunc func(text string) (value.Value, error)

// Decoder runs the strict, lenient and repair tiers in order and returns the
// first usable result. The zero Decoder is not usable; call New.
type Decoder struct {
	Strict  ParseFunc
	Lenient ParseFunc
	Repair  func(text string) string
}

// New returns a Decoder wired to goccy/go-json, json5 and the repair pass
func New() *Decoder {
	return &Decoder{
		Strict:  ParseStrict,
		Lenient: ParseLenient,
		Repair:  repair.Repair,
	}
}

var std = New()

// Decode decodes text with the default Decoder
func Decode(text string) (value.Value, error) {
	return std.Decode(text)
}

// DecodeTier decodes text with the default Decoder and reports the tier that
// succeeded
func DecodeTier(text string) (value.Value, Tier, error) {
	return std.DecodeTier(text)
}

func (d *Decoder) Decode(text string) (value.Value, error) {
	v, _, err := d.DecodeTier(text)
	return v, err
}

func (d *Decoder) DecodeTier(text string) (value.Value, Tier, error) {
	v, strictErr := d.Strict(text)
	if strictErr == nil {
		return v, TierStrict, nil
	}

	if d.Lenient != nil {
		if v, err := d.Lenient(text); err == nil && !degenerate(v, text) {
			return v, TierLenient, nil
		}
	}

	if d.Repair != nil {
		if v, err := d.Strict(d.Repair(text)); err == nil && !degenerate(v, text) {
			return v, TierRepair, nil
		}
	}

	return value.Value{}, TierNone, &Error{Strict: strictErr}
}

// degenerate reports a fallback result that only wraps the whole input as one
// string, meaning no structure was recovered
func degenerate(v value.Value, text string) bool {
	s, ok := v.AsString()
	return ok && s == text
}

// SyntaxError is a strict parse failure and the byte offset it was detected at
type SyntaxError struct {
	Msg    string
	Offset int64
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// withOffset attaches goccy's offset to its error message
func withOffset(err error) error {
	var se *gojson.SyntaxError
	if errors.As(err, &se) {
		return &SyntaxError{Msg: se.Error(), Offset: se.Offset, Err: err}
	}
	return err
}

// ParseStrict accepts standard JSON only. Numbers keep their literal text.
// Object members come out sorted by key.
func ParseStrict(text string) (value.Value, error) {
	data := []byte(text)

	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	err := dec.Decode(&raw)
	if errors.Is(err, io.EOF) {
		return value.Value{}, &SyntaxError{Msg: "unexpected end of JSON input", Offset: int64(len(data)), Err: err}
	}
	// Decode stops after the first value, so the whole document is checked
	// too. The buffer decoder reports where the document went wrong.
	if err != nil || !gojson.Valid(data) {
		var rest any
		if uerr := gojson.Unmarshal(data, &rest); uerr != nil {
			return value.Value{}, withOffset(uerr)
		}
		if err != nil {
			return value.Value{}, withOffset(err)
		}
		return value.Value{}, &SyntaxError{Msg: "invalid character after top-level value", Offset: dec.InputOffset()}
	}
	return value.FromAny(raw)
}

// ParseLenient accepts JSON5: comments, trailing commas, unquoted keys,
// single-quoted strings, hex and signed numbers. Numbers pass through
// float64.
func ParseLenient(text string) (value.Value, error) {
	var raw any
	if err := json5.Unmarshal([]byte(text), &raw); err != nil {
		return value.Value{}, err
	}
	return value.FromAny(raw)
}
