// Package config loads the cluster-wide settings the master and range
// servers both read at startup, grounded on the teacher's config.go
// LoadConfiguration idiom (read file, unmarshal, return a plain struct) but
// generalized to the TOML property tree Hypertable ships (spec §1/§8).
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rangedb/htcore/corelib"
)

// Config mirrors the subset of Hypertable.* properties this core consumes.
type Config struct {
	Hypertable struct {
		Directory string `toml:"Directory"`

		Failover struct {
			GracePeriod Duration `toml:"GracePeriod"`
		} `toml:"Failover"`

		RangeServer struct {
			Range struct {
				SplitSize int64 `toml:"SplitSize"`
			} `toml:"Range"`

			AccessGroup struct {
				GarbageThreshold struct {
					Percentage float64 `toml:"Percentage"`
				} `toml:"GarbageThreshold"`
			} `toml:"AccessGroup"`

			Update struct {
				CoalesceLimit    int64    `toml:"CoalesceLimit"`
				CommitQueueBound int      `toml:"CommitQueueBound"`
				MaxClockSkew     Duration `toml:"MaxClockSkew"`
				QualifyWorkers   int      `toml:"QualifyWorkers"`
				CommitWorkers    int      `toml:"CommitWorkers"`
				RespondWorkers   int      `toml:"RespondWorkers"`
			} `toml:"Update"`
		} `toml:"RangeServer"`

		Master struct {
			MaxOperationThreads int `toml:"MaxOperationThreads"`
		} `toml:"Master"`
	} `toml:"Hypertable"`
}

// Default returns the built-in defaults used when no config file is present,
// matching the original's compiled-in property defaults (original_source/
// Config.cc) for the properties this core reads.
func Default() Config {
	var c Config
	c.Hypertable.Directory = "/hypertable"
	c.Hypertable.Failover.GracePeriod = Duration{Seconds: 30}
	c.Hypertable.RangeServer.Range.SplitSize = 200 * 1024 * 1024
	c.Hypertable.RangeServer.AccessGroup.GarbageThreshold.Percentage = 20.0
	c.Hypertable.RangeServer.Update.CoalesceLimit = 4 * 1024 * 1024
	c.Hypertable.RangeServer.Update.CommitQueueBound = 64
	c.Hypertable.RangeServer.Update.MaxClockSkew = Duration{Seconds: 5}
	c.Hypertable.RangeServer.Update.QualifyWorkers = 2
	c.Hypertable.RangeServer.Update.CommitWorkers = 1
	c.Hypertable.RangeServer.Update.RespondWorkers = 2
	c.Hypertable.Master.MaxOperationThreads = 4
	return c
}

// Duration is a TOML-friendly seconds-based duration, since go-toml/v2 has no
// built-in time.Duration codec.
type Duration struct {
	Seconds int64 `toml:"Seconds"`
}

// AsDuration converts to a time.Duration for use by the stdlib time APIs.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// Load reads and parses a TOML config file, falling back to Default() values
// for any property the file omits.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, corelib.Wrap(corelib.External, "read config file "+path, err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, corelib.Wrap(corelib.SyntaxError, "parse config file "+path, err)
	}
	return c, nil
}
