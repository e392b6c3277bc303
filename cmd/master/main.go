// Command master runs the Hypertable Master Operation Engine: it replays
// the MML, serves the Operation Processor's drain loop, watches Hyperspace
// for range-server location changes, and exposes a read-only status/admin
// HTTP surface. Grounded on the teacher's try_in_docker/main.go wiring
// idiom (build config structs, call Initialize/New, run, exit on error).
package main

import (
	"context"
	"flag"
	log "log/slog"
	"os"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"

	"github.com/rangedb/htcore/config"
	"github.com/rangedb/htcore/hyperspace"
	"github.com/rangedb/htcore/master/mlog"
	"github.com/rangedb/htcore/master/ops"
	"github.com/rangedb/htcore/master/processor"
	"github.com/rangedb/htcore/master/watcher"
)

func main() {
	configPath := flag.String("config", "", "path to hypertable.toml (defaults to built-in defaults)")
	cassandraHosts := flag.String("cassandra-hosts", "127.0.0.1", "comma-separated Cassandra contact points")
	cassandraKeyspace := flag.String("cassandra-keyspace", "hypertable", "Cassandra keyspace for the MML")
	redisAddr := flag.String("redis-addr", "127.0.0.1:6379", "Redis address backing Hyperspace")
	kafkaBrokers := flag.String("kafka-brokers", "127.0.0.1:9092", "comma-separated Kafka brokers for watcher events")
	listenAddr := flag.String("listen", ":15867", "admin HTTP listen address")
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

	cluster := gocql.NewCluster(*cassandraHosts)
	cluster.Keyspace = *cassandraKeyspace
	session, err := cluster.CreateSession()
	if err != nil {
		log.Error("connect to cassandra", "err", err)
		os.Exit(1)
	}
	defer session.Close()
	mmlog := mlog.NewCassandraLog(session, *cassandraKeyspace)

	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	hs := hyperspace.NewRedisService(redisClient, cfg.Hypertable.Failover.GracePeriod.AsDuration())

	opsCtx, err := ops.NewContext(hs, nil, cfg.Hypertable.Failover.GracePeriod.AsDuration())
	if err != nil {
		log.Error("build operation context", "err", err)
		os.Exit(1)
	}

	proc := processor.New(mmlog, opsCtx, cfg.Hypertable.Master.MaxOperationThreads)
	ctx := context.Background()
	if err := proc.Bootstrap(ctx); err != nil {
		log.Error("bootstrap processor", "err", err)
		os.Exit(1)
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer([]string{*kafkaBrokers}, saramaCfg)
	if err != nil {
		log.Error("connect to kafka", "err", err)
		os.Exit(1)
	}
	defer producer.Close()

	w := watcher.New(hs, proc, producer, "rangeserver-events")
	go func() {
		if err := w.Watch(ctx, "/hypertable/servers"); err != nil {
			log.Error("hyperspace watch exited", "err", err)
		}
	}()

	go drainLoop(ctx, proc)

	router := newRouter(proc)
	if err := router.Run(*listenAddr); err != nil {
		log.Error("http server exited", "err", err)
		os.Exit(1)
	}
}

// drainLoop repeatedly drains the ready frontier; a real deployment would
// wake this on graph change notifications instead of polling, but the
// Dependency Graph doesn't expose a wake channel (spec §9 scheduling model
// describes Drain as idempotent and cheap when nothing is ready).
func drainLoop(ctx context.Context, p *processor.Processor) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := p.Drain(ctx); err != nil {
				log.Error("drain", "err", err)
			}
		}
	}
}
