// Package engine provides the Lisp evaluation engine for glowform designs.
// It wraps zygomys in a sandboxed environment and produces a design graph
// from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/kernel"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a validation
// failure.
type EvalError struct {
	Line    int           `json:"line"`
	Col     int           `json:"col"`
	Message string        `json:"message"`
	NodeID  design.NodeID `json:"nodeId,omitempty"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int           `json:"line"`
	Col     int           `json:"col"`
	Message string        `json:"message"`
	NodeID  design.NodeID `json:"nodeId,omitempty"`
}

// EvalResult bundles the full output of an evaluation for use by callers
// that report errors and warnings rather than fail.
type EvalResult struct {
	Design   *design.Design `json:"-"`
	Errors   []EvalError    `json:"errors"`
	Warnings []EvalWarning  `json:"warnings"`
}

// OK reports whether the evaluation produced a usable design.
func (r EvalResult) OK() bool {
	return r.Design != nil && len(r.Errors) == 0
}

// Engine wraps the zygomys interpreter for design evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	defaults design.Defaults
	limits   kernel.Limits
	timeout  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults sets the parameters scripts fall back to.
func WithDefaults(d design.Defaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// WithLimits sets the size ceilings.
func WithLimits(l kernel.Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithTimeout sets the evaluation time limit. Non-positive values keep
// EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		defaults: design.DefaultDefaults(),
		limits:   kernel.DefaultLimits(),
		timeout:  EvalTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new Design.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval failure: returns nil design + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*design.Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// Check evaluates source and validates the resulting design against the
// engine's limits. Validation errors are reported as EvalErrors, in which
// case the returned design is nil.
func (e *Engine) Check(source string) (EvalResult, error) {
	start := time.Now()
	d, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	if len(evalErrs) > 0 {
		return EvalResult{Errors: evalErrs}, nil
	}

	res := EvalResult{Design: d}
	vr := design.ValidateAll(d, e.limits)
	for _, w := range vr.Warnings {
		res.Warnings = append(res.Warnings, EvalWarning{Message: w.Message, NodeID: w.NodeID})
	}
	if len(vr.Errors) > 0 {
		for _, ve := range vr.Errors {
			res.Errors = append(res.Errors, EvalError{Message: ve.Message, NodeID: ve.NodeID})
		}
		res.Design = nil
	}

	kernel.Logger().Debug().
		Int("nodes", d.NodeCount()).
		Int("errors", len(res.Errors)).
		Int("warnings", len(res.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("engine: checked design")
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*design.Design, []EvalError, error) {
	d := design.New()
	d.Defaults = e.defaults

	// Empty source is a valid program that produces an empty design.
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, d, e.limits)

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return d, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
