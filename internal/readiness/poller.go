package readiness

import (
	"net/http"
	"time"

	"kliharness/internal/scheduler"
)

// OOBIPath is the path probed for readiness.
const OOBIPath = "/oobi"

// Requester is the client side a Poller drives.
type Requester interface {
	scheduler.Task
	Request(method, path string)
	PopResponse() (*Response, bool)
}

// Poller queues a single GET /oobi on its client child and completes once the
// first response has been moved into its holder. The client is detached from the
// active set in the same pass. The client resends the request only when its
// transport failed before any response arrived, so at most one response is ever
// harvested.
type Poller struct {
	*scheduler.Composite

	client    Requester
	requested bool
	holder    *Response
}

// NewPoller builds a poller around client. tock is the advisory delay between checks.
func NewPoller(client Requester, tock time.Duration) *Poller {
	p := &Poller{client: client}
	p.Composite = scheduler.NewComposite(scheduler.NewFunc(p.step(tock)), tock, client)
	return p
}

func (p *Poller) step(tock time.Duration) scheduler.StepFunc {
	return func(time.Duration) (scheduler.Status, error) {
		if !p.requested {
			p.client.Request(http.MethodGet, OOBIPath)
			p.requested = true
			return scheduler.Pending(tock), nil
		}

		resp, ok := p.client.PopResponse()
		if !ok {
			return scheduler.Pending(tock), nil
		}
		p.holder = resp
		p.Remove(p.client)
		return scheduler.Finished(), nil
	}
}

// Response returns the held response, if one arrived.
func (p *Poller) Response() (*Response, bool) {
	return p.holder, p.holder != nil
}
