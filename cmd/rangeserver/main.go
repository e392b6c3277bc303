// Command rangeserver runs one Hypertable range server: the qualify/
// commit/respond Update Pipeline (C7), its memory tracker, scanner map
// and replay barrier. Grounded on the teacher's try_in_docker/main.go
// wiring idiom.
package main

import (
	"context"
	"flag"
	log "log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rangedb/htcore/config"
	"github.com/rangedb/htcore/fsbroker"
	"github.com/rangedb/htcore/rangeserver/barrier"
	"github.com/rangedb/htcore/rangeserver/gc"
	"github.com/rangedb/htcore/rangeserver/memtrack"
	"github.com/rangedb/htcore/rangeserver/scanner"
	"github.com/rangedb/htcore/rangeserver/update"
)

func main() {
	configPath := flag.String("config", "", "path to hypertable.toml (defaults to built-in defaults)")
	commitLogPath := flag.String("commit-log", "/hypertable/commit.log", "path to this range server's commit log")
	s3Bucket := flag.String("s3-bucket", "", "S3 (or compatible) bucket backing transfer logs; empty disables the broker")
	memoryLimit := flag.Int64("memory-limit", 512<<20, "bytes of in-flight update batches this range server may hold before refusing admission")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	commitLog, err := update.OpenDirectCommitLog(*commitLogPath)
	if err != nil {
		log.Error("open commit log", "err", err)
		os.Exit(1)
	}
	defer commitLog.Close()

	var broker fsbroker.Broker
	if *s3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Error("load aws config", "err", err)
			os.Exit(1)
		}
		broker = fsbroker.NewS3Broker(s3.NewFromConfig(awsCfg), *s3Bucket)
	} else {
		broker = fsbroker.NewFake()
	}

	tracker := memtrack.New(*memoryLimit)
	scanMap := scanner.New(time.Now)
	replayBarrier := barrier.New()
	replayBarrier.Open(barrier.Root)

	u := cfg.Hypertable.RangeServer.Update
	pipelineCfg := update.Config{
		QualifyWorkers:   u.QualifyWorkers,
		CommitWorkers:    u.CommitWorkers,
		RespondWorkers:   u.RespondWorkers,
		CoalesceLimit:    int(u.CoalesceLimit),
		CommitQueueBound: u.CommitQueueBound,
		MaxClockSkew:     u.MaxClockSkew.AsDuration(),
	}

	// RangeMap resolution is served over RPC by the master in a full
	// deployment; comm's reactor/framing layer is an out-of-scope external
	// collaborator (comm.go), so this process wires the in-memory stand-in
	// until that transport exists.
	rangeMap := update.NewMemRangeMap()
	cellCache := update.NewMemCellCache()

	pipeline := update.New(pipelineCfg, rangeMap, nil, commitLog, cellCache, broker, tracker)
	defer pipeline.Shutdown()

	gt := gc.New(
		cfg.Hypertable.RangeServer.AccessGroup.GarbageThreshold.Percentage/100,
		time.Hour, 10*time.Minute,
		256<<20, 16<<20,
		time.Now(),
	)

	log.Info("range server started",
		"commit_log", *commitLogPath,
		"memory_limit", *memoryLimit,
		"qualify_workers", u.QualifyWorkers,
		"commit_workers", u.CommitWorkers,
		"respond_workers", u.RespondWorkers,
	)

	go housekeep(scanMap, gt)
	select {}
}

// housekeep runs the scanner idle-expiry sweep and garbage-tracker target
// check on a fixed tick; a full deployment drives AdjustTargets from real
// compaction stats instead of leaving it at its construction-time targets.
func housekeep(scanMap *scanner.Map, gt *gc.Tracker) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for now := range t.C {
		if n := scanMap.PurgeExpired(30 * time.Minute); n > 0 {
			log.Info("purged idle scanners", "count", n)
		}
		if gt.CheckNeeded(now) {
			log.Info("access group garbage collection threshold reached")
		}
	}
}
