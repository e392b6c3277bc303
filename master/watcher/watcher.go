// Package watcher implements the Range-Server Hyperspace Watcher (spec §4.6,
// component C6): it turns Hyperspace lock_acquired/lock_released callbacks
// into Operations fed to the Operation Processor, and publishes a cluster
// event for every state change. Event publishing is grounded on the
// corpus's Kafka producer idiom (in_red_ck/kafka/producer.go uses
// github.com/Shopify/sarama, already a teacher dependency via go.mod).
package watcher

import (
	"context"
	log "log/slog"

	"github.com/Shopify/sarama"

	"github.com/rangedb/htcore/hyperspace"
	"github.com/rangedb/htcore/master/ops"
)

// Enqueuer is the subset of master/processor.Processor the watcher drives:
// adding newly created operations and releasing obstruction labels.
type Enqueuer interface {
	Add(op *ops.Operation)
	Unblock(label string)
}

// Watcher bridges Hyperspace lock events to the Operation Processor.
type Watcher struct {
	hs        hyperspace.Service
	processor Enqueuer
	producer  sarama.SyncProducer
	topic     string
	// recovering tracks locations with an in-flight Recover operation, so a
	// lock_acquired seen before the grace period elapses can be recognized
	// as a reconnect (see onLockAcquired, spec §5) rather than a fresh join.
	recovering map[string]bool
}

// New builds a Watcher. producer may be nil, in which case event publishing
// is skipped (used in tests and in single-node deployments without Kafka).
func New(hs hyperspace.Service, processor Enqueuer, producer sarama.SyncProducer, topic string) *Watcher {
	return &Watcher{
		hs:         hs,
		processor:  processor,
		producer:   producer,
		topic:      topic,
		recovering: make(map[string]bool),
	}
}

// Watch registers the Watcher's callback for location and returns once the
// subscription is live.
func (w *Watcher) Watch(ctx context.Context, location string) error {
	return w.hs.Watch(ctx, location, func(ev hyperspace.Event) { w.handle(ev) })
}

func (w *Watcher) handle(ev hyperspace.Event) {
	switch ev.Kind {
	case hyperspace.LockAcquired:
		w.onLockAcquired(ev)
	case hyperspace.LockReleased:
		w.onLockReleased(ev)
	}
	w.publish(ev)
}

// onLockAcquired inserts an ephemeral RegisterServerBlocker so that a
// RegisterServer for this location cannot complete while a Recover is still
// actively reassigning that location's ranges (spec §5 reconnect handling):
// the blocker self-releases once nothing obstructs
// "recovery-barrier:<location>" any more (see executeRegisterServerBlocker).
// If this is a fast reconnect — a Recover for the same location is still in
// its grace period — that Recover is cancelled here immediately rather than
// left to run out the full failover timeout.
func (w *Watcher) onLockAcquired(ev hyperspace.Event) {
	blocker := ops.NewOperation(ops.RegisterServerBlocker, &ops.RegisterServerBlockerPayload{Location: ev.Location})
	w.processor.Add(blocker)

	server := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: ev.Location})
	w.processor.Add(server)

	if w.recovering[ev.Location] {
		w.processor.Unblock("recovery-barrier:" + ev.Location)
		delete(w.recovering, ev.Location)
	}

	log.Info("range server lock acquired", "location", ev.Location, "generation", ev.Generation)
}

// onLockReleased enqueues a Recover operation for the now-unlocked location.
func (w *Watcher) onLockReleased(ev hyperspace.Event) {
	w.recovering[ev.Location] = true
	recoverOp := ops.NewOperation(ops.Recover, &ops.RecoverPayload{Location: ev.Location})
	w.processor.Add(recoverOp)
	log.Info("range server lock released, recovery queued", "location", ev.Location)
}

func (w *Watcher) publish(ev hyperspace.Event) {
	if w.producer == nil {
		return
	}
	kind := "lock_acquired"
	if ev.Kind == hyperspace.LockReleased {
		kind = "lock_released"
	}
	msg := &sarama.ProducerMessage{
		Topic: w.topic,
		Key:   sarama.StringEncoder(ev.Location),
		Value: sarama.StringEncoder(kind),
	}
	if _, _, err := w.producer.SendMessage(msg); err != nil {
		log.Warn("watcher event publish failed", "location", ev.Location, "err", err)
	}
}
