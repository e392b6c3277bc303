package fsbroker

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rangedb/htcore/corelib"
)

// Fake is an in-memory Broker for unit tests, mirroring the map-backed mock
// idiom used throughout the teacher's in_red_ck mocks.
type Fake struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewFake returns an empty in-memory Broker.
func NewFake() *Fake {
	return &Fake{files: make(map[string][]byte)}
}

type fakeWriteHandle struct {
	fake *Fake
	path string
	buf  bytes.Buffer
}

func (h *fakeWriteHandle) Read(p []byte) (int, error) {
	return 0, corelib.New(corelib.InvalidOperation, "handle opened for write is not readable")
}

func (h *fakeWriteHandle) Append(p []byte) (int, error) { return h.buf.Write(p) }

func (h *fakeWriteHandle) Flush(ctx context.Context) error {
	h.fake.mu.Lock()
	defer h.fake.mu.Unlock()
	h.fake.files[h.path] = append([]byte(nil), h.buf.Bytes()...)
	return nil
}

func (h *fakeWriteHandle) Close(ctx context.Context) error { return h.Flush(ctx) }

type fakeReadHandle struct {
	r *bytes.Reader
}

func (h *fakeReadHandle) Read(p []byte) (int, error) { return h.r.Read(p) }
func (h *fakeReadHandle) Append(p []byte) (int, error) {
	return 0, corelib.New(corelib.InvalidOperation, "handle opened for read is not writable")
}
func (h *fakeReadHandle) Flush(ctx context.Context) error { return nil }
func (h *fakeReadHandle) Close(ctx context.Context) error { return nil }

func (f *Fake) Create(ctx context.Context, path string, overwrite bool) (Handle, error) {
	f.mu.Lock()
	_, exists := f.files[path]
	f.mu.Unlock()
	if exists && !overwrite {
		return nil, corelib.New(corelib.InvalidOperation, path+" already exists")
	}
	return &fakeWriteHandle{fake: f, path: path}, nil
}

func (f *Fake) Open(ctx context.Context, path string) (Handle, error) {
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return nil, corelib.New(corelib.External, path+" not found")
	}
	return &fakeReadHandle{r: bytes.NewReader(data)}, nil
}

func (f *Fake) Mkdirs(ctx context.Context, path string) error { return nil }

func (f *Fake) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *Fake) Rmdir(ctx context.Context, path string) error {
	prefix := strings.TrimSuffix(path, "/") + "/"
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := range f.files {
		if strings.HasPrefix(p, prefix) {
			delete(f.files, p)
		}
	}
	return nil
}

func (f *Fake) Readdir(ctx context.Context, path string) ([]string, error) {
	prefix := strings.TrimSuffix(path, "/") + "/"
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	for p := range f.files {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			seen[rest] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) Length(ctx context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return 0, corelib.New(corelib.External, path+" not found")
	}
	return int64(len(data)), nil
}
