package scheduler

import "time"

// Status is what a task reports after one resumption.
type Status struct {
	// Done is set once the task has terminated. A done task is never resumed again
	// by its scheduler or parent.
	Done bool
	// Tock is the suggested minimum delay before the next resumption is meaningful.
	// It is advisory only.
	Tock time.Duration
}

// Pending reports a task that wants to be resumed again.
func Pending(tock time.Duration) Status {
	return Status{Tock: tock}
}

// Finished reports a terminated task.
func Finished() Status {
	return Status{Done: true}
}

// Task is a suspendable unit of cooperatively scheduled work.
//
// Resume runs the task until its next suspension point. An error aborts the
// scheduler run that is driving the task.
type Task interface {
	Resume(tyme time.Duration) (Status, error)
}

// Exiter is implemented by tasks that hold resources which should be released when
// the task is removed from its parent before it terminated.
type Exiter interface {
	Exit()
}

// StepFunc is the body of a Func task.
type StepFunc func(tyme time.Duration) (Status, error)

// Func adapts a StepFunc into a Task. Once the step reports Done, later Resume calls
// return Finished without invoking the step again.
type Func struct {
	step StepFunc
	done bool
}

// NewFunc wraps step into a Task.
func NewFunc(step StepFunc) *Func {
	return &Func{step: step}
}

// Resume implements Task.
func (f *Func) Resume(tyme time.Duration) (Status, error) {
	if f.done || f.step == nil {
		f.done = true
		return Finished(), nil
	}

	status, err := f.step(tyme)
	if err != nil {
		return status, err
	}
	if status.Done {
		f.done = true
	}
	return status, nil
}

// Done reports whether the step has terminated.
func (f *Func) Done() bool {
	return f.done
}
