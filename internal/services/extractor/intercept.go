package extractor

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// messagesURLPattern matches the XHR that carries a conversation's
// message list
var messagesURLPattern = regexp.MustCompile(`/conversations/(\d+)/messages`)

// pendingRequest ties an in-flight messages XHR to the arming cycle it
// was observed under
type pendingRequest struct {
	convID string
	gen    uint64
}

// Interceptor captures the message-list response for the conversation
// currently being opened. The page holds one open conversation at a
// time, so a single slot of state is enough; Reset clears it before
// each click. Deliveries are stamped with the Reset generation so a
// late body from a timed-out conversation cannot be adopted as the
// current one's.
type Interceptor struct {
	mu       sync.Mutex
	gen      uint64
	expected string
	pending  map[network.RequestID]pendingRequest
	body     []byte
	captured string
}

// NewInterceptor wires network event listening into the chromedp context.
// Call once per browser context, before any navigation.
func NewInterceptor(ctx context.Context) *Interceptor {
	ic := &Interceptor{pending: make(map[network.RequestID]pendingRequest)}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			m := messagesURLPattern.FindStringSubmatch(e.Response.URL)
			if m == nil {
				return
			}
			ic.mu.Lock()
			ic.pending[e.RequestID] = pendingRequest{convID: m[1], gen: ic.gen}
			ic.mu.Unlock()

		case *network.EventLoadingFinished:
			ic.mu.Lock()
			p, ok := ic.pending[e.RequestID]
			if ok {
				delete(ic.pending, e.RequestID)
			}
			ic.mu.Unlock()
			if !ok {
				return
			}

			// Body fetch must run on the target's executor, outside
			// the event callback
			reqID := e.RequestID
			go func() {
				c := chromedp.FromContext(ctx)
				body, err := network.GetResponseBody(reqID).Do(cdp.WithExecutor(ctx, c.Target))
				if err != nil {
					return
				}
				ic.deliver(p.convID, p.gen, body)
			}()
		}
	})

	return ic
}

// Reset arms the interceptor for the given conversation, discards any
// previously captured body and invalidates in-flight deliveries from
// earlier arming cycles
func (ic *Interceptor) Reset(conversationID string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.gen++
	ic.expected = conversationID
	ic.body = nil
	ic.captured = ""
}

func (ic *Interceptor) deliver(conversationID string, gen uint64, body []byte) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	// A body requested before the last Reset belongs to the previous
	// conversation; drop it even when armed wide open
	if gen != ic.gen {
		return
	}
	// Keep the latest body for the armed conversation; stray responses
	// from other conversations are dropped. An empty expected ID accepts
	// anything, which covers rows whose ID is only learned from the XHR.
	if ic.expected != "" && conversationID != ic.expected {
		return
	}
	ic.body = body
	ic.captured = conversationID
}

// Await polls until a body for the armed conversation arrives or the
// timeout elapses. Returns the captured conversation ID alongside the
// body so callers that armed with "" learn the real ID.
func (ic *Interceptor) Await(ctx context.Context, timeout, interval time.Duration) (string, []byte, bool) {
	deadline := time.Now().Add(timeout)
	for {
		ic.mu.Lock()
		body, captured := ic.body, ic.captured
		ic.mu.Unlock()
		if body != nil {
			return captured, body, true
		}
		if time.Now().After(deadline) {
			return "", nil, false
		}
		select {
		case <-ctx.Done():
			return "", nil, false
		case <-time.After(interval):
		}
	}
}

// MatchMessagesURL extracts the conversation ID from a message-list URL,
// or "" when the URL is not one
func MatchMessagesURL(url string) string {
	if m := messagesURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
