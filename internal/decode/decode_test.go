package decode

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wsdottie/dottie-go/internal/repair"
	"github.com/wsdottie/dottie-go/internal/value"
)

// countingDecoder wraps the real tiers and records how often each runs
type countingDecoder struct {
	mu                   sync.Mutex
	strict, lenient, fix int
}

func (c *countingDecoder) decoder() *Decoder {
	return &Decoder{
		Strict: func(text string) (value.Value, error) {
			c.mu.Lock()
			c.strict++
			c.mu.Unlock()
			return ParseStrict(text)
		},
		Lenient: func(text string) (value.Value, error) {
			c.mu.Lock()
			c.lenient++
			c.mu.Unlock()
			return ParseLenient(text)
		},
		Repair: func(text string) string {
			c.mu.Lock()
			c.fix++
			c.mu.Unlock()
			return repair.Repair(text)
		},
	}
}

func obj(members ...value.Member) value.Value { return value.Object(members...) }
func member(k string, v value.Value) value.Member {
	return value.Member{Key: k, Value: v}
}

func TestDecodeScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		tier     Tier
		expected value.Value
	}{
		{
			name:  "well formed",
			input: `{"a":1,"b":[1,2,3]}`,
			tier:  TierStrict,
			expected: obj(
				member("a", value.Int(1)),
				member("b", value.Array(value.Int(1), value.Int(2), value.Int(3))),
			),
		},
		{
			name:     "unquoted keys and trailing comma",
			input:    `{a:1, b:2,}`,
			tier:     TierLenient,
			expected: obj(member("a", value.Int(1)), member("b", value.Int(2))),
		},
		{
			name:     "comments",
			input:    "// vessels\n{\"VesselID\": 1 /* Cathlamet */}",
			tier:     TierLenient,
			expected: obj(member("VesselID", value.Int(1))),
		},
		{
			name:     "line comment before closing brace",
			input:    "{\"Region\": 'NW' // northwest\n}",
			tier:     TierLenient,
			expected: obj(member("Region", value.String("NW"))),
		},
		{
			name:     "single quotes",
			input:    `{'RoadName': 'I-90'}`,
			tier:     TierLenient,
			expected: obj(member("RoadName", value.String("I-90"))),
		},
		{
			name:     "unescaped inner quotes",
			input:    `{"name": "O'Brien "Irish" pub"}`,
			tier:     TierRepair,
			expected: obj(member("name", value.String(`O'Brien "Irish" pub`))),
		},
		{
			name:     "truncated payload",
			input:    `{"alerts": [{"AlertID": 1}, {"AlertID": 2`,
			tier:     TierRepair,
			expected: obj(member("alerts", value.Array(obj(member("AlertID", value.Int(1))), obj(member("AlertID", value.Int(2)))))),
		},
		{
			name:     "number literal",
			input:    `42`,
			tier:     TierStrict,
			expected: value.Int(42),
		},
		{
			name:     "string literal",
			input:    `"hello"`,
			tier:     TierStrict,
			expected: value.String("hello"),
		},
		{
			name:     "null literal",
			input:    `null`,
			tier:     TierStrict,
			expected: value.Null(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, tier, err := DecodeTier(tt.input)
			if err != nil {
				t.Fatalf("DecodeTier(%q) error: %v", tt.input, err)
			}
			if tier != tt.tier {
				t.Errorf("Expected tier %s, got %s", tt.tier, tier)
			}
			if !value.Equal(v, tt.expected) {
				t.Errorf("DecodeTier(%q) = %v, want %v", tt.input, v, tt.expected)
			}
		})
	}
}

func TestDecodeRawControlCharacters(t *testing.T) {
	v, err := Decode("{\"note\": \"line1\nline2\"}")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	note, _ := v.Get("note")
	if s, _ := note.AsString(); s != "line1\nline2" {
		t.Errorf("Expected note with newline, got %v", note)
	}
}

func TestDecodeFailures(t *testing.T) {
	inputs := []string{
		"Hello, this is not JSON",
		"not json at all",
		"",
		"   ",
		"Infinity",
		"-Infinity",
		"<html><body>Service Unavailable</body></html>",
	}

	for _, in := range inputs {
		t.Run(strconv.Quote(in), func(t *testing.T) {
			v, err := Decode(in)
			if err == nil {
				t.Fatalf("Expected error, got value %v", v)
			}
			if s, ok := v.AsString(); ok && s == in {
				t.Errorf("Decode returned the input itself as a string")
			}
			if !errors.Is(err, ErrUndecodable) {
				t.Errorf("Expected ErrUndecodable, got %v", err)
			}

			_, strictErr := ParseStrict(in)
			if strictErr == nil {
				t.Fatal("Expected strict parse to fail")
			}
			if err.Error() != strictErr.Error() {
				t.Errorf("Expected strict error %q, got %q", strictErr, err)
			}
		})
	}
}

func TestFastPathSkipsFallbacks(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`[]`,
		`"x"`,
		`-0.5e10`,
		`true`,
		`{"Time":"/Date(1700000000000-0800)/","WaitTime":12}`,
	}

	for _, in := range inputs {
		c := &countingDecoder{}
		v, tier, err := c.decoder().DecodeTier(in)
		if err != nil {
			t.Fatalf("DecodeTier(%q): %v", in, err)
		}
		if tier != TierStrict {
			t.Errorf("%q: expected strict tier, got %s", in, tier)
		}
		if c.strict != 1 || c.lenient != 0 || c.fix != 0 {
			t.Errorf("%q: expected only strict to run, got strict=%d lenient=%d repair=%d",
				in, c.strict, c.lenient, c.fix)
		}

		want, _ := ParseStrict(in)
		if !value.Equal(v, want) {
			t.Errorf("%q: decoded %v differs from strict %v", in, v, want)
		}
	}
}

func TestGuardRejectsDegenerateFallbacks(t *testing.T) {
	c := &countingDecoder{}
	in := "Hello, this is not JSON"

	_, tier, err := c.decoder().DecodeTier(in)
	if err == nil {
		t.Fatal("Expected error")
	}
	if tier != TierNone {
		t.Errorf("Expected no tier, got %s", tier)
	}
	// repair wrapped the text as a string literal and the guard rejected it
	if c.lenient != 1 || c.fix != 1 || c.strict != 2 {
		t.Errorf("Expected every tier to run once, got strict=%d lenient=%d repair=%d",
			c.strict, c.lenient, c.fix)
	}
	if got := repair.Repair(in); got != `"Hello, this is not JSON"` {
		t.Errorf("Expected repair to quote bare text, got %q", got)
	}
}

func TestGuardOnLenientTier(t *testing.T) {
	in := "plain words"
	d := &Decoder{
		Strict: ParseStrict,
		Lenient: func(text string) (value.Value, error) {
			return value.String(text), nil
		},
		Repair: func(text string) string { return text },
	}

	if _, err := d.Decode(in); err == nil {
		t.Fatal("Expected degenerate lenient result to be rejected")
	}

	// a string that differs from the input is real recovery
	d.Lenient = func(text string) (value.Value, error) {
		return value.String("words"), nil
	}
	v, tier, err := d.DecodeTier(in)
	if err != nil || tier != TierLenient {
		t.Fatalf("Expected lenient success, got %v %s", err, tier)
	}
	if s, _ := v.AsString(); s != "words" {
		t.Errorf("Unexpected value %v", v)
	}
}

func TestErrorIsStrictError(t *testing.T) {
	errStrict := errors.New("strict: bad token at offset 3")
	errLenient := errors.New("lenient: gave up")

	d := &Decoder{
		Strict: func(string) (value.Value, error) {
			return value.Value{}, errStrict
		},
		Lenient: func(string) (value.Value, error) {
			return value.Value{}, errLenient
		},
		Repair: func(text string) string { return text + "}" },
	}

	_, err := d.Decode("{bad")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.Is(err, errStrict) {
		t.Errorf("Expected strict error, got %v", err)
	}
	if errors.Is(err, errLenient) {
		t.Error("Lenient error must not surface")
	}
	if err.Error() != errStrict.Error() {
		t.Errorf("Expected message %q, got %q", errStrict, err)
	}

	var decodeErr *Error
	if !errors.As(err, &decodeErr) || decodeErr.Strict != errStrict {
		t.Errorf("Expected *Error carrying the strict error, got %T", err)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"a":1,"b":[1,2,3]}`,
		`{"VesselName":"Kitsap","Speed":0.1,"Eta":null,"OpRouteAbbrev":["bre-sea"]}`,
		`[1.50, "x\"y", {"nested": {"deep": [true, false]}}]`,
		`12345678901234567890`,
	}

	for _, in := range inputs {
		v, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		b, err := v.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON: %v", err)
		}
		again, tier, err := DecodeTier(string(b))
		if err != nil {
			t.Fatalf("Decode(%q): %v", b, err)
		}
		if tier != TierStrict {
			t.Errorf("Expected re-encoded value to decode strictly, got %s", tier)
		}
		if !value.Equal(v, again) {
			t.Errorf("Round trip changed value: %v -> %v", v, again)
		}
	}
}

func TestDecodeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := `{a: ` + strconv.Itoa(i) + `,}`
			v, err := Decode(in)
			if err != nil {
				t.Errorf("Decode(%q): %v", in, err)
				return
			}
			a, _ := v.Get("a")
			if n, _ := a.Int64(); n != int64(i) {
				t.Errorf("Expected %d, got %v", i, a)
			}
		}(i)
	}
	wg.Wait()
}

func TestStrictErrorsCarryOffset(t *testing.T) {
	tests := []struct {
		input  string
		offset int64
	}{
		{`{"a":1} x`, 9},
		{``, 0},
		{"  ", 2},
	}

	for _, tt := range tests {
		t.Run(strconv.Quote(tt.input), func(t *testing.T) {
			_, err := ParseStrict(tt.input)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Expected *SyntaxError, got %T %v", err, err)
			}
			if se.Offset != tt.offset {
				t.Errorf("Expected offset %d, got %d", tt.offset, se.Offset)
			}
			if !strings.Contains(err.Error(), "offset "+strconv.FormatInt(tt.offset, 10)) {
				t.Errorf("Expected offset in message, got %q", err)
			}

			// the offset survives the fallback chain
			_, err = Decode(tt.input)
			if !errors.As(err, &se) {
				t.Errorf("Expected *SyntaxError from Decode, got %v", err)
			}
		})
	}
}

func TestTruncatedStrictErrorHasOffset(t *testing.T) {
	_, err := ParseStrict(`[1, 2`)
	var se *SyntaxError
	if !errors.As(err, &se) || se.Offset <= 0 {
		t.Errorf("Expected positive offset for truncated input, got %v", err)
	}
}

func TestDecodedObjectsAreKeySorted(t *testing.T) {
	for _, in := range []string{`{"b":1,"a":2,"c":3}`, `{b:1, a:2, c:3,}`} {
		v, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		var keys []string
		for _, m := range v.Members() {
			keys = append(keys, m.Key)
		}
		if strings.Join(keys, ",") != "a,b,c" {
			t.Errorf("%q: expected sorted members, got %v", in, keys)
		}
	}
}

func TestRepairTierIsLinear(t *testing.T) {
	const n = 1 << 20
	long := strings.Repeat("x", n)
	in := `{"k":"` + long + `",` + strings.Repeat(":", n)

	start := time.Now()
	v, tier, err := DecodeTier(in)
	elapsed := time.Since(start)

	if err != nil || tier != TierRepair {
		t.Fatalf("Expected repair tier, got %s %v", tier, err)
	}
	if k, _ := v.Get("k"); k.Len() != n {
		t.Errorf("Expected %d byte value, got %d", n, k.Len())
	}
	if elapsed > 3*time.Second {
		t.Errorf("Decoding %d bytes took %v", len(in), elapsed)
	}
}
