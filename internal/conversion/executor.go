package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

var (
	// ErrConversion matches every *ConversionError.
	ErrConversion = errors.New("conversion failed")
	// ErrStepUnavailable is returned when a chain names a step the executor
	// cannot run.
	ErrStepUnavailable = errors.New("conversion step unavailable")
)

// ConversionError reports a chain that failed during Convert.
type ConversionError struct {
	From  string
	To    string
	Chain *model.Chain
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s to %s via %s: %v", e.From, e.To, e.Chain, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	return []error{ErrConversion, e.Err}
}

// Executor runs a chain over a data value.
type Executor interface {
	Execute(ctx context.Context, chain *model.Chain, data *model.Data) (*model.Data, error)
}

// StepFunc performs one converter or validator step.
type StepFunc func(ctx context.Context, reg *model.Registration, data *model.Data) (*model.Data, error)

// StepExecutor runs chains from a table of step functions keyed by
// registration ID.
type StepExecutor struct {
	mu    sync.RWMutex
	steps map[string]StepFunc
}

// NewStepExecutor creates an executor with the given steps. The map is copied.
func NewStepExecutor(steps map[string]StepFunc) *StepExecutor {
	e := &StepExecutor{steps: make(map[string]StepFunc, len(steps))}
	for id, fn := range steps {
		e.steps[id] = fn
	}
	return e
}

// Handle installs fn for the registration with the given ID.
func (e *StepExecutor) Handle(id string, fn StepFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps[id] = fn
}

// Execute runs every step of chain in order. A pass-through chain returns
// data unchanged. A step result without a format takes the step's declared
// out format.
func (e *StepExecutor) Execute(ctx context.Context, chain *model.Chain, data *model.Data) (*model.Data, error) {
	cur := data
	for _, step := range chain.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.mu.RLock()
		fn, ok := e.steps[step.ID]
		e.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStepUnavailable, step.ID)
		}

		next, err := fn(ctx, step, cur)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.ID, err)
		}
		if next == nil {
			return nil, fmt.Errorf("step %s: no result", step.ID)
		}
		if next.Format == "" {
			next.Format = step.OutFormat
		}
		cur = next
	}
	return cur, nil
}
