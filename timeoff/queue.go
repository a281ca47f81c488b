/*
queue.go - Offline queue flusher

PURPOSE:
  Retries queued time-off submissions on a polling interval once
  connectivity returns. Retry is per-item: delivered items leave the queue,
  failed items stay with a bumped attempt count. There is no global
  rollback on partial batch failure.

DESIGN:
  Background goroutine with a ticker: Start/Stop, WaitGroup drain,
  FlushOnce exposed for tests and for a manual "retry now" action.
*/
package timeoff

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
)

// DefaultFlushInterval is how often the queue is retried.
const DefaultFlushInterval = time.Minute

// Flusher drains the offline queue into the cloud store.
type Flusher struct {
	Queue    QueueStore
	Cloud    cloud.Store
	Interval time.Duration
	Log      *logrus.Entry

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

func NewFlusher(queue QueueStore, cl cloud.Store, log *logrus.Entry) *Flusher {
	return &Flusher{Queue: queue, Cloud: cl, Interval: DefaultFlushInterval, Log: log}
}

// Start begins polling. Calling Start on a running flusher is a no-op.
func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return
	}
	f.active = true
	f.stop = make(chan struct{})
	f.ticker = time.NewTicker(f.Interval)
	f.wg.Add(1)
	go f.run()
	if f.Log != nil {
		f.Log.WithField("interval", f.Interval).Info("offline queue flusher started")
	}
}

// Stop halts polling and waits for an in-flight flush to finish.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.active = false
	f.ticker.Stop()
	close(f.stop)
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *Flusher) run() {
	defer f.wg.Done()
	for {
		select {
		case <-f.stop:
			return
		case <-f.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			delivered, remaining, err := f.FlushOnce(ctx)
			cancel()
			if f.Log != nil && (delivered > 0 || err != nil) {
				f.Log.WithFields(logrus.Fields{
					"delivered": delivered,
					"remaining": remaining,
					"error":     err,
				}).Info("offline queue flush")
			}
		}
	}
}

// FlushOnce attempts every queued item once. Returns delivered and
// remaining counts; the error reports queue-storage failures only, never
// per-item delivery failures.
func (f *Flusher) FlushOnce(ctx context.Context) (delivered, remaining int, err error) {
	items, err := f.Queue.ListQueuedTimeOff(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return delivered, len(items) - delivered, ctx.Err()
		}
		if werr := f.Cloud.SetTimeOff(ctx, item.DocID, item.Doc); werr != nil {
			if berr := f.Queue.BumpQueueAttempt(ctx, item.ID, werr.Error()); berr != nil {
				return delivered, len(items) - delivered, berr
			}
			continue
		}
		if derr := f.Queue.DeleteQueuedTimeOff(ctx, item.ID); derr != nil {
			return delivered, len(items) - delivered, derr
		}
		delivered++
	}
	return delivered, len(items) - delivered, nil
}
