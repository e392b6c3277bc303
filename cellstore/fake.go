package cellstore

import (
	"strconv"
	"sync"
)

// Fake is an in-memory Store for unit tests exercising the garbage tracker
// and maintenance scheduling without real on-disk cell files.
type Fake struct {
	mu    sync.Mutex
	files map[string][]Info
	seq   int
}

// NewFake returns an empty in-memory Store.
func NewFake() *Fake {
	return &Fake{files: make(map[string][]Info)}
}

// Seed installs info as an existing file under accessGroupPath, for test setup.
func (f *Fake) Seed(accessGroupPath string, info Info) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[accessGroupPath] = append(f.files[accessGroupPath], info)
}

func (f *Fake) List(accessGroupPath string) ([]Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Info(nil), f.files[accessGroupPath]...), nil
}

func (f *Fake) Compact(accessGroupPath string, inputs []Info) (Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	remove := make(map[string]bool, len(inputs))
	var size, entries int64
	for _, in := range inputs {
		remove[in.Path] = true
		size += in.SizeBytes
		entries += in.EntryCount - in.DeleteCount
	}
	remaining := f.files[accessGroupPath][:0]
	for _, existing := range f.files[accessGroupPath] {
		if !remove[existing.Path] {
			remaining = append(remaining, existing)
		}
	}
	f.seq++
	out := Info{
		Path:       accessGroupPath + "/compacted-" + strconv.Itoa(f.seq),
		SizeBytes:  size,
		EntryCount: entries,
	}
	f.files[accessGroupPath] = append(remaining, out)
	return out, nil
}
