package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/starfederation/datastar-go/datastar"
)

// Context gives handlers the request, the writer and, for Datastar
// requests, the SSE generator. It delegates context.Context to the request.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// SSE returns nil for non-Datastar requests.
	SSE() *datastar.ServerSentEventGenerator
}

// NewContext creates a Context for the request.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{w: w, r: r}
}

type httpContext struct {
	w       http.ResponseWriter
	r       *http.Request
	sseOnce sync.Once
	sse     *datastar.ServerSentEventGenerator
}

func (c *httpContext) Request() *http.Request { return c.r }

func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }

// SSE lazily opens the event stream; opening it commits response headers.
func (c *httpContext) SSE() *datastar.ServerSentEventGenerator {
	if !IsDataStar(c.r) {
		return nil
	}
	c.sseOnce.Do(func() { c.sse = NewSSE(c.w, c.r) })
	return c.sse
}

func (c *httpContext) Deadline() (deadline time.Time, ok bool) { return c.r.Context().Deadline() }

func (c *httpContext) Done() <-chan struct{} { return c.r.Context().Done() }

func (c *httpContext) Err() error { return c.r.Context().Err() }

func (c *httpContext) Value(key any) any { return c.r.Context().Value(key) }
