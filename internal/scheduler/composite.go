package scheduler

import "time"

type child struct {
	task     Task
	removed  bool
	finished bool
}

// Composite is a Task that owns an ordered set of child tasks and resumes them
// round robin: one resumption per active child per pass, in insertion order.
//
// An optional body is resumed at the start of every pass until it terminates. The
// body (or any child) may call Add and Remove while the pass is running:
//
//   - Add appends a child; it is first resumed on the next pass.
//   - Remove marks a child; every child that was active when the pass started is still
//     resumed exactly once in that pass, and the removal is applied when the pass ends.
//
// The composite is done when its body has terminated and no children remain.
// Children are compared by identity, so they must be comparable (typically pointers).
type Composite struct {
	body     Task
	bodyDone bool
	children []*child
	tock     time.Duration
	done     bool
}

// NewComposite creates a composite. body may be nil.
func NewComposite(body Task, tock time.Duration, children ...Task) *Composite {
	c := &Composite{
		body:     body,
		bodyDone: body == nil,
		tock:     tock,
	}
	c.Add(children...)
	return c
}

// Add appends children to the active set.
func (c *Composite) Add(tasks ...Task) {
	for _, t := range tasks {
		if t == nil {
			continue
		}
		c.children = append(c.children, &child{task: t})
	}
}

// Remove detaches children from the active set. Removed children that implement
// Exiter have Exit called once, when the removal is applied.
func (c *Composite) Remove(tasks ...Task) {
	for _, t := range tasks {
		for _, ch := range c.children {
			if ch.task == t {
				ch.removed = true
			}
		}
	}
}

// Active returns the children that are currently scheduled, in resumption order.
// Children marked for removal during the running pass are not included.
func (c *Composite) Active() []Task {
	var out []Task
	for _, ch := range c.children {
		if !ch.removed && !ch.finished {
			out = append(out, ch.task)
		}
	}
	return out
}

// Done reports whether the composite has terminated.
func (c *Composite) Done() bool {
	return c.done
}

// Resume implements Task.
func (c *Composite) Resume(tyme time.Duration) (Status, error) {
	if c.done {
		return Finished(), nil
	}

	pass := make([]*child, 0, len(c.children))
	for _, ch := range c.children {
		if !ch.removed && !ch.finished {
			pass = append(pass, ch)
		}
	}

	if !c.bodyDone {
		status, err := c.body.Resume(tyme)
		if err != nil {
			return Status{}, err
		}
		c.bodyDone = status.Done
	}

	for _, ch := range pass {
		status, err := ch.task.Resume(tyme)
		if err != nil {
			return Status{}, err
		}
		if status.Done {
			ch.finished = true
		}
	}

	c.compact()

	if c.bodyDone && len(c.children) == 0 {
		c.done = true
		return Finished(), nil
	}
	return Pending(c.tock), nil
}

// Exit detaches every remaining child, calling Exit on those that support it,
// and terminates the composite.
func (c *Composite) Exit() {
	for _, ch := range c.children {
		if !ch.finished {
			ch.removed = true
		}
	}
	c.compact()
	c.bodyDone = true
	c.done = true
}

func (c *Composite) compact() {
	kept := c.children[:0]
	for _, ch := range c.children {
		switch {
		case ch.removed && !ch.finished:
			if e, ok := ch.task.(Exiter); ok {
				e.Exit()
			}
		case ch.finished, ch.removed:
		default:
			kept = append(kept, ch)
		}
	}
	for i := len(kept); i < len(c.children); i++ {
		c.children[i] = nil
	}
	c.children = kept
}
