package scheduler

import "time"

// event records one resumption.
type event struct {
	pass int
	id   int
}

// countingTask completes after doneAfter resumptions; zero means never.
type countingTask struct {
	id        int
	doneAfter int
	resumes   int
	exits     int
	pass      *int
	log       *[]event
	onResume  func()
}

func (c *countingTask) Resume(tyme time.Duration) (Status, error) {
	c.resumes++
	if c.log != nil {
		p := 0
		if c.pass != nil {
			p = *c.pass
		}
		*c.log = append(*c.log, event{pass: p, id: c.id})
	}
	if c.onResume != nil {
		c.onResume()
	}
	if c.doneAfter > 0 && c.resumes >= c.doneAfter {
		return Finished(), nil
	}
	return Pending(time.Millisecond), nil
}

func (c *countingTask) Exit() {
	c.exits++
}
