package hyperspace

import (
	"context"
	"sync"

	"github.com/rangedb/htcore/corelib"
)

// Fake is an in-process Service used by unit tests, grounded on the teacher's
// in_red_ck mock_redis.go / mock_registry.go style of a map-backed stand-in
// for the real backend.
type Fake struct {
	mu       sync.Mutex
	locks    map[string]uint64 // location -> generation, present while held
	attrs    map[string]map[string][]byte
	created  map[string]bool
	watchers map[string][]Callback
	gen      uint64
}

// NewFake returns an empty in-memory Service.
func NewFake() *Fake {
	return &Fake{
		locks:    make(map[string]uint64),
		attrs:    make(map[string]map[string][]byte),
		created:  make(map[string]bool),
		watchers: make(map[string][]Callback),
	}
}

type fakeLockHandle struct {
	f          *Fake
	location   string
	generation uint64
}

func (h *fakeLockHandle) Generation() uint64 { return h.generation }

func (h *fakeLockHandle) Release(ctx context.Context) error {
	h.f.mu.Lock()
	delete(h.f.locks, h.location)
	cbs := append([]Callback(nil), h.f.watchers[h.location]...)
	h.f.mu.Unlock()
	for _, cb := range cbs {
		cb(Event{Kind: LockReleased, Location: h.location, Generation: h.generation})
	}
	return nil
}

func (f *Fake) AcquireLock(ctx context.Context, location string) (LockHandle, error) {
	f.mu.Lock()
	if _, held := f.locks[location]; held {
		f.mu.Unlock()
		return nil, corelib.New(corelib.External, "lock already held: "+location)
	}
	f.gen++
	gen := f.gen
	f.locks[location] = gen
	cbs := append([]Callback(nil), f.watchers[location]...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(Event{Kind: LockAcquired, Location: location, Generation: gen})
	}
	return &fakeLockHandle{f: f, location: location, generation: gen}, nil
}

func (f *Fake) Watch(ctx context.Context, location string, cb Callback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers[location] = append(f.watchers[location], cb)
	return nil
}

func (f *Fake) SetAttribute(ctx context.Context, path, name string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.attrs[path]
	if !ok {
		m = make(map[string][]byte)
		f.attrs[path] = m
	}
	m[name] = value
	return nil
}

func (f *Fake) GetAttribute(ctx context.Context, path, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.attrs[path]
	if !ok {
		return nil, corelib.New(corelib.HyperspaceNotFound, path)
	}
	v, ok := m[name]
	if !ok {
		return nil, corelib.New(corelib.HyperspaceNotFound, path+"#"+name)
	}
	return v, nil
}

func (f *Fake) Create(ctx context.Context, path string, idempotent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created[path] && !idempotent {
		return corelib.New(corelib.HyperspaceBadPath, path+" already exists")
	}
	f.created[path] = true
	return nil
}

func (f *Fake) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.created, path)
	delete(f.attrs, path)
	return nil
}

// IsLockHeld reports whether location currently has a held lock; test helper.
func (f *Fake) IsLockHeld(location string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.locks[location]
	return ok
}
