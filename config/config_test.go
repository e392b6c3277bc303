package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "htcore.toml")
	body := `
[Hypertable]
Directory = "/custom"

[Hypertable.RangeServer.Range]
SplitSize = 1048576

[Hypertable.RangeServer.AccessGroup.GarbageThreshold]
Percentage = 33.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Hypertable.Directory != "/custom" {
		t.Fatalf("expected Directory override, got %q", c.Hypertable.Directory)
	}
	if c.Hypertable.RangeServer.Range.SplitSize != 1048576 {
		t.Fatalf("expected SplitSize override, got %d", c.Hypertable.RangeServer.Range.SplitSize)
	}
	if c.Hypertable.RangeServer.AccessGroup.GarbageThreshold.Percentage != 33.5 {
		t.Fatalf("expected GarbageThreshold override, got %v", c.Hypertable.RangeServer.AccessGroup.GarbageThreshold.Percentage)
	}
	// Untouched defaults should survive.
	if c.Hypertable.Master.MaxOperationThreads != 4 {
		t.Fatalf("expected default MaxOperationThreads to survive, got %d", c.Hypertable.Master.MaxOperationThreads)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
