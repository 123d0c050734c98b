package server

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/chazu/intcode/history"
	"github.com/chazu/intcode/vm"
)

// Outcome is the result of one machine run on the Runner.
type Outcome struct {
	RunID   string
	Result  *vm.Result
	Outputs []int64
	Fault   error // machine fault, nil for halted or ran-off runs
}

// Runner executes machines for request handlers. Each request gets its own
// machine; a semaphore bounds how many run at once.
type Runner struct {
	sem      *semaphore.Weighted
	maxSteps uint64
	store    *history.Store
}

// NewRunner creates a Runner allowing maxConcurrent simultaneous machines,
// each limited to maxSteps instructions (0 for unlimited). store may be nil.
func NewRunner(maxConcurrent int, maxSteps uint64, store *history.Store) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		maxSteps: maxSteps,
		store:    store,
	}
}

// stepLimit caps a requested step budget at the runner's limit.
func (r *Runner) stepLimit(requested uint64) uint64 {
	if r.maxSteps > 0 && (requested == 0 || requested > r.maxSteps) {
		return r.maxSteps
	}
	return requested
}

// Run executes program and blocks until it stops. The returned error is
// non-nil only when the run could not take place (ctx done while waiting
// for a slot, or a panic); machine faults are reported in Outcome.Fault.
func (r *Runner) Run(ctx context.Context, program []int64, maxSteps uint64, opts ...vm.Option) (*Outcome, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	out := &vm.Collector{}
	rec := history.NewRun(program)
	opts = append(opts, vm.WithOutput(out), vm.WithMaxSteps(r.stepLimit(maxSteps)))

	res, fault, err := r.execute(ctx, program, opts)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		RunID:   rec.ID,
		Result:  res,
		Outputs: out.Values(),
		Fault:   fault,
	}
	r.record(ctx, rec, outcome)
	return outcome, nil
}

// execute runs a machine, recovering from panics.
func (r *Runner) execute(ctx context.Context, program []int64, opts []vm.Option) (res *vm.Result, fault error, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("machine panic: %v", p)
		}
	}()
	res, fault = vm.Run(ctx, program, opts...)
	return res, fault, nil
}

func (r *Runner) record(ctx context.Context, rec *history.Run, o *Outcome) {
	if r.store == nil {
		return
	}
	rec.Finish(o.Result, o.Outputs, o.Fault)
	if err := r.store.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.Warningf("recording run %s: %v", rec.ID, err)
	}
}
