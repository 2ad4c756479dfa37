package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/kernel"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	d, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if d == nil {
		t.Fatal("expected non-nil design")
	}
	if d.NodeCount() != 0 {
		t.Errorf("expected empty design, got %d nodes", d.NodeCount())
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine()

	d, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if d == nil || d.NodeCount() != 0 {
		t.Fatal("expected an empty design")
	}
}

func TestEvaluatePlainExpression(t *testing.T) {
	eng := NewEngine()

	// Arithmetic alone creates no nodes.
	d, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if d == nil {
		t.Fatal("expected non-nil design")
	}
	if d.NodeCount() != 0 {
		t.Errorf("expected empty design, got %d nodes", d.NodeCount())
	}
}

func TestEvaluateCarriesDefaults(t *testing.T) {
	def := design.DefaultDefaults()
	def.Depth = 7
	eng := NewEngine(WithDefaults(def))

	d, _, err := eng.Evaluate(`(flat "tag" (rect :w 10 :h 10))`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if d.Defaults.Depth != 7 {
		t.Errorf("design defaults depth = %g, want 7", d.Defaults.Depth)
	}
	fd := d.MustLookup("tag").Data.(design.FlatData)
	if fd.Depth != 7 {
		t.Errorf("flat depth = %g, want the configured default 7", fd.Depth)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	d, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if d != nil {
		t.Fatal("expected nil design on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	d, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if d != nil {
		t.Fatal("expected nil design on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateBuiltinErrorIsReported(t *testing.T) {
	eng := NewEngine()

	d, evalErrs, err := eng.Evaluate(`(flat "tag" (rect :w -1 :h 10))`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if d != nil {
		t.Fatal("expected nil design")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "positive") {
		t.Fatalf("expected a rect size error, got %v", evalErrs)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	source := `
(flat "plate" (rect :w 60 :h 40))
(place (part "plate") :at (vec3 0 0 3))
`
	var first []design.NodeID
	for i := 0; i < 5; i++ {
		d, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if i == 0 {
			first = d.Roots
			continue
		}
		if len(d.Roots) != len(first) || d.Roots[0] != first[0] {
			t.Fatalf("iteration %d: roots %v differ from %v", i, d.Roots, first)
		}
	}
}

func TestCheckReportsValidation(t *testing.T) {
	eng := NewEngine(WithLimits(kernel.Limits{MaxParts: 1}))

	res, err := eng.Check(`
(flat "a" (rect :w 10 :h 10))
(flat "b" (rect :w 10 :h 10))
`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if res.OK() {
		t.Fatal("expected the part limit to be reported")
	}
	if !strings.Contains(res.Errors[0].Message, "exceeds limit") {
		t.Errorf("unexpected error %q", res.Errors[0].Message)
	}
}

func TestCheckWarnings(t *testing.T) {
	eng := NewEngine()

	res, err := eng.Check(`(channel "strip" (path (vec2 0 0) (vec2 80 0)) :cap-material :opaque)`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected an opaque cap warning")
	}
}

func TestEvaluateTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than requested")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, time.Second)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	if eng := NewEngine(WithTimeout(0)); eng.timeout != EvalTimeout {
		t.Errorf("timeout = %s, want %s", eng.timeout, EvalTimeout)
	}
	if eng := NewEngine(WithTimeout(time.Second)); eng.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", eng.timeout)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: bad keyword",
			wantLine: 3,
			wantMsg:  "bad keyword",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
