// Package engine runs formwork scripts. Each evaluation gets a fresh
// zygomys sandbox with the modelling builtins installed, and the parts the
// script declares are collected into a design.Design.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/formwork/pkg/design"
	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout bounds one evaluation unless WithTimeout says otherwise.
const DefaultTimeout = 5 * time.Second

var (
	ErrTimeout    = errors.New("evaluation timed out")
	ErrSuperseded = errors.New("evaluation superseded by a newer request")
)

// EvalError is a script error: a parse failure or a runtime error raised
// by user code or a builtin.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts one sandbox at a time. Only the newest request
// may return a design; older ones still running report ErrSuperseded.
type Engine struct {
	timeout time.Duration

	mu     sync.Mutex
	latest uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-evaluation limit. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs source with the engine timeout. See EvaluateContext.
func (e *Engine) Evaluate(source string) (*design.Design, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext runs source and returns the design it declares.
// Script problems come back as EvalErrors with a nil design. The error
// result is reserved for the run itself: ErrTimeout, ErrSuperseded, a
// cancelled ctx or a panic inside the interpreter.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*design.Design, []EvalError, error) {
	gen := e.begin()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		d, evalErrs, err := evaluate(source)
		done <- outcome{design: d, errs: evalErrs, err: err}
	}()

	return e.await(ctx, done, gen)
}

// outcome carries one evaluation back from its goroutine.
type outcome struct {
	design *design.Design
	errs   []EvalError
	err    error
}

// begin registers a new request and returns its generation.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest++
	return e.latest
}

func (e *Engine) isLatest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.latest
}

// await blocks until the evaluation finishes or ctx ends. A sandbox that
// outlives ctx keeps running; its result lands in the buffered channel and
// is dropped.
func (e *Engine) await(ctx context.Context, done <-chan outcome, gen uint64) (*design.Design, []EvalError, error) {
	select {
	case res := <-done:
		if !e.isLatest(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.design, res.errs, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return nil, nil, ctx.Err()
	}
}

// evaluate loads and runs source in a fresh sandbox. The sandbox has no
// filesystem or system access.
func evaluate(source string) (*design.Design, []EvalError, error) {
	d := design.New()
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, d)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return d, nil, nil
}

// zygomys reports positions as "Error on line N: ..." or "line N: ...".
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`),
	regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`),
}

// parseZygomysError turns an interpreter error into EvalErrors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range linePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
