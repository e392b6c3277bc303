package comm

import (
	"context"
	"sync"
	"time"
)

// Handler answers a request sent through FakeDispatcher, standing in for the
// real reactor's request routing during tests.
type Handler func(h Header, payload []byte) (reply []byte, err error)

// FakeDispatcher is an in-process Dispatcher that invokes a registered
// Handler synchronously, used to drive the update pipeline and operation
// state machines in tests without a real comm reactor.
type FakeDispatcher struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

// NewFakeDispatcher returns a Dispatcher with no registered handlers; Send to
// an unregistered addr fails with ok=false.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{handlers: make(map[string]Handler)}
}

// Register installs h as the handler for addr.
func (d *FakeDispatcher) Register(addr string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[addr] = h
}

type fakePending struct {
	reply []byte
	err   error
	ok    bool
}

func (p *fakePending) WaitForCompletion(deadline time.Time) ([]byte, bool, error) {
	return p.reply, p.ok, p.err
}

func (d *FakeDispatcher) Send(ctx context.Context, addr string, h Header, payload []byte) (Pending, error) {
	d.mu.Lock()
	handler, ok := d.handlers[addr]
	d.mu.Unlock()
	if !ok {
		return &fakePending{ok: false}, nil
	}
	reply, err := handler(h, payload)
	return &fakePending{reply: reply, err: err, ok: err == nil}, nil
}
