package fsbroker

import (
	"context"
	"io"
	"testing"
)

func TestFake_CreateAppendFlushOpen(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	w, err := f.Create(ctx, "/logs/rs1/transfer.log", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Append([]byte("hello ")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := w.Append([]byte("world")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	size, err := f.Length(ctx, "/logs/rs1/transfer.log")
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("unexpected length %d", size)
	}

	r, err := f.Open(ctx, "/logs/rs1/transfer.log")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := io.ReadAll(readerFunc(r.Read))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFake_CreateWithoutOverwriteRejectsExisting(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	w, _ := f.Create(ctx, "/a", false)
	w.Close(ctx)

	if _, err := f.Create(ctx, "/a", false); err == nil {
		t.Fatalf("expected error creating existing path without overwrite")
	}
	if _, err := f.Create(ctx, "/a", true); err != nil {
		t.Fatalf("overwrite create should succeed: %v", err)
	}
}

func TestFake_ReaddirAndRmdir(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	for _, p := range []string{"/tables/1/a.cs", "/tables/1/b.cs", "/tables/2/c.cs"} {
		w, _ := f.Create(ctx, p, false)
		w.Close(ctx)
	}

	names, err := f.Readdir(ctx, "/tables/1")
	if err != nil {
		t.Fatalf("Readdir failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 entries under /tables/1, got %v", names)
	}

	if err := f.Rmdir(ctx, "/tables/1"); err != nil {
		t.Fatalf("Rmdir failed: %v", err)
	}
	if _, err := f.Length(ctx, "/tables/1/a.cs"); err == nil {
		t.Fatalf("expected removed file to be gone")
	}
	if _, err := f.Length(ctx, "/tables/2/c.cs"); err != nil {
		t.Fatalf("expected sibling directory to survive Rmdir: %v", err)
	}
}

// readerFunc adapts a Read method value to io.Reader for io.ReadAll.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
