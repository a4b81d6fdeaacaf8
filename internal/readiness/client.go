package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kliharness/internal/scheduler"
	"kliharness/pkg/logging"
)

// Response is one HTTP response harvested by HTTPClient.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type request struct {
	method string
	path   string
}

type result struct {
	resp *Response
	err  error
}

type flight struct {
	req    request
	cancel context.CancelFunc
	done   chan result
}

// HTTPClient is a scheduler task wrapping net/http. It never completes on its own;
// its parent removes it once it has what it needs.
//
// The request itself runs on a goroutine. Resume only starts queued requests,
// collects finished ones and re-issues a request whose connection failed, so the
// tick loop never blocks on the network.
type HTTPClient struct {
	baseURL       string
	client        *http.Client
	retryInterval time.Duration

	queue     []request
	inflight  *flight
	responses []*Response
	retryAt   time.Duration
	closed    bool
}

// NewHTTPClient creates a client for baseURL (scheme, host and port).
// retryInterval is the logical time to wait before re-sending a request whose
// transport failed, typically because the node is not listening yet.
func NewHTTPClient(baseURL string, retryInterval time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{},
		retryInterval: retryInterval,
	}
}

// Request queues a request. It is sent on the next Resume.
func (c *HTTPClient) Request(method, path string) {
	c.queue = append(c.queue, request{method: method, path: path})
}

// PopResponse removes and returns the oldest harvested response.
func (c *HTTPClient) PopResponse() (*Response, bool) {
	if len(c.responses) == 0 {
		return nil, false
	}
	resp := c.responses[0]
	c.responses[0] = nil
	c.responses = c.responses[1:]
	return resp, true
}

// Resume implements scheduler.Task.
func (c *HTTPClient) Resume(tyme time.Duration) (scheduler.Status, error) {
	if c.closed {
		return scheduler.Finished(), nil
	}

	if c.inflight != nil {
		select {
		case r := <-c.inflight.done:
			c.harvest(tyme, r)
		default:
		}
	}

	if c.inflight == nil && len(c.queue) > 0 && tyme >= c.retryAt {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.start(next)
	}

	return scheduler.Pending(c.retryInterval), nil
}

// Exit cancels any request still in flight and drops the queue.
func (c *HTTPClient) Exit() {
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.queue = nil
	c.closed = true
}

func (c *HTTPClient) harvest(tyme time.Duration, r result) {
	req := c.inflight.req
	c.inflight.cancel()
	c.inflight = nil

	if r.err != nil {
		logging.Debug("Readiness", "%s %s%s failed, retrying: %v", req.method, c.baseURL, req.path, r.err)
		c.queue = append([]request{req}, c.queue...)
		c.retryAt = tyme + c.retryInterval
		return
	}
	c.responses = append(c.responses, r.resp)
}

func (c *HTTPClient) start(req request) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{req: req, cancel: cancel, done: make(chan result, 1)}
	c.inflight = f

	go func() {
		resp, err := c.do(ctx, req)
		f.done <- result{resp: resp, err: err}
	}()
}

func (c *HTTPClient) do(ctx context.Context, req request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
