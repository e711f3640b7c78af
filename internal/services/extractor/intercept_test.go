package extractor

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func newBareInterceptor() *Interceptor {
	return &Interceptor{pending: make(map[network.RequestID]pendingRequest)}
}

func TestAwaitDeliversArmedConversation(t *testing.T) {
	ic := newBareInterceptor()
	ic.Reset("4242")
	gen := ic.gen

	go func() {
		time.Sleep(20 * time.Millisecond)
		ic.deliver("4242", gen, []byte(`[]`))
	}()

	convID, body, ok := ic.Await(context.Background(), time.Second, 5*time.Millisecond)
	if !ok {
		t.Fatal("expected delivery before timeout")
	}
	if convID != "4242" {
		t.Fatalf("expected conversation 4242, got %s", convID)
	}
	if string(body) != "[]" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAwaitIgnoresOtherConversations(t *testing.T) {
	ic := newBareInterceptor()
	ic.Reset("4242")
	ic.deliver("9999", ic.gen, []byte(`stray`))

	if _, _, ok := ic.Await(context.Background(), 50*time.Millisecond, 5*time.Millisecond); ok {
		t.Fatal("stray delivery must not satisfy the wait")
	}
}

func TestAwaitWideOpenLearnsConversationID(t *testing.T) {
	ic := newBareInterceptor()
	ic.Reset("")
	ic.deliver("1717", ic.gen, []byte(`[]`))

	convID, _, ok := ic.Await(context.Background(), 50*time.Millisecond, 5*time.Millisecond)
	if !ok {
		t.Fatal("expected delivery")
	}
	if convID != "1717" {
		t.Fatalf("expected learned conversation ID, got %s", convID)
	}
}

func TestResetDiscardsPreviousBody(t *testing.T) {
	ic := newBareInterceptor()
	ic.Reset("1")
	ic.deliver("1", ic.gen, []byte(`first`))
	ic.Reset("2")

	if _, _, ok := ic.Await(context.Background(), 30*time.Millisecond, 5*time.Millisecond); ok {
		t.Fatal("reset must discard the previous conversation's body")
	}
}

func TestLateDeliveryFromPreviousArmingIsDropped(t *testing.T) {
	ic := newBareInterceptor()
	ic.Reset("")
	stale := ic.gen

	// The previous conversation timed out; its response lands after the
	// next row has re-armed the interceptor wide open
	ic.Reset("")
	ic.deliver("4242", stale, []byte(`[]`))

	if _, _, ok := ic.Await(context.Background(), 30*time.Millisecond, 5*time.Millisecond); ok {
		t.Fatal("a body requested before the last reset must be dropped")
	}

	// A delivery from the current arming still lands
	ic.deliver("4343", ic.gen, []byte(`[]`))
	convID, _, ok := ic.Await(context.Background(), 50*time.Millisecond, 5*time.Millisecond)
	if !ok || convID != "4343" {
		t.Fatalf("expected current-generation delivery, got ok=%v convID=%s", ok, convID)
	}
}
