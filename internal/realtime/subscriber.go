// Package realtime feeds gateway change notifications into the entity
// store. One Subscriber owns all open changefeed channels; reconciliation
// is idempotent and order-tolerant, so a notification may race or duplicate
// the session façade's own apply of the same logical change without
// corrupting state.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/mapper"
	"github.com/pmallory/tripsync/internal/store"
)

// Subscriber manages changefeed watches keyed by (table, trip id) and
// applies their events to the store. At most one watch exists per key; a
// new watch for the same key first tears down the old one.
type Subscriber struct {
	feed gateway.Changefeed
	st   *store.Store
	log  *slog.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

// NewSubscriber constructs a Subscriber over the given changefeed and store.
// A nil logger falls back to slog.Default().
func NewSubscriber(feed gateway.Changefeed, st *store.Store, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{
		feed:    feed,
		st:      st,
		log:     log,
		watches: map[string]*watch{},
	}
}

// watch is one open channel plus its delivery goroutine.
type watch struct {
	topic gateway.Topic
	ctx   context.Context
	stop  context.CancelFunc

	mu      sync.Mutex
	sub     gateway.Subscription
	stopped bool

	done chan struct{}
}

func (w *watch) current() gateway.Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sub
}

func (w *watch) halted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *watch) halt() {
	w.mu.Lock()
	w.stopped = true
	sub := w.sub
	w.mu.Unlock()
	w.stop()
	if sub != nil {
		sub.Close()
	}
}

// WatchTrip opens the channels for a trip's detail view: the trip row,
// its activities, its messages, and the (unfiltered, see gateway.Topic)
// votes table. Blocks only while the channels are established.
func (s *Subscriber) WatchTrip(ctx context.Context, tripID string) error {
	topics := []gateway.Topic{
		{Table: gateway.TableTrips, TripID: tripID},
		{Table: gateway.TableActivities, TripID: tripID},
		{Table: gateway.TableMessages, TripID: tripID},
		{Table: gateway.TableVotes}, // no server-side trip filter on votes
	}
	for _, topic := range topics {
		if err := s.Watch(ctx, topic); err != nil {
			return fmt.Errorf("realtime.Subscriber.WatchTrip: %w", err)
		}
	}
	return nil
}

// UnwatchTrip tears down the channels opened by WatchTrip. Teardown is
// deterministic: when it returns, no further event for those keys will be
// applied.
func (s *Subscriber) UnwatchTrip(tripID string) {
	keys := []gateway.Topic{
		{Table: gateway.TableTrips, TripID: tripID},
		{Table: gateway.TableActivities, TripID: tripID},
		{Table: gateway.TableMessages, TripID: tripID},
		{Table: gateway.TableVotes},
	}
	for _, topic := range keys {
		s.teardown(topic.Key())
	}
}

// Watch opens a single topic channel, replacing any existing watch for the
// same key.
func (s *Subscriber) Watch(ctx context.Context, topic gateway.Topic) error {
	s.teardown(topic.Key())

	sub, err := s.feed.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("realtime.Subscriber.Watch %s: %w", topic.Key(), err)
	}

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &watch{
		topic: topic,
		ctx:   wctx,
		stop:  cancel,
		sub:   sub,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.watches[topic.Key()] = w
	s.mu.Unlock()

	go s.run(w)
	return nil
}

// Close tears down every open watch.
func (s *Subscriber) Close() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.watches))
	for k := range s.watches {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	for _, k := range keys {
		s.teardown(k)
	}
}

func (s *Subscriber) teardown(key string) {
	s.mu.Lock()
	w, ok := s.watches[key]
	if ok {
		delete(s.watches, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	w.halt()
	<-w.done
}

// run delivers events until the watch is halted. A closed event channel
// without a halt means the transport dropped; the channel is re-established
// with exponential backoff capped at 30s, retrying until the watch is torn
// down so a watched key never turns into a dead entry.
func (s *Subscriber) run(w *watch) {
	defer close(w.done)
	for {
		for ev := range w.current().Events() {
			s.apply(ev)
		}
		if w.halted() || w.ctx.Err() != nil {
			return
		}

		s.log.Warn("changefeed dropped, resubscribing", "topic", w.topic.Key())
		backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(200*time.Millisecond))
		err := retry.Do(w.ctx, backoff, func(ctx context.Context) error {
			sub, err := s.feed.Subscribe(ctx, w.topic)
			if err != nil {
				return retry.RetryableError(err)
			}
			w.mu.Lock()
			if w.stopped {
				w.mu.Unlock()
				sub.Close()
				return nil
			}
			w.sub = sub
			w.mu.Unlock()
			return nil
		})
		if err != nil {
			// Only the watch's own teardown cancels the retry context.
			return
		}
		if w.halted() {
			return
		}
	}
}

// apply reconciles one notification into the store. Unknown ids on UPDATE
// and DELETE are expected under eventual consistency and ignored without
// logging at error level.
func (s *Subscriber) apply(ev gateway.ChangeEvent) {
	switch ev.Table {
	case gateway.TableTrips:
		s.applyTrip(ev)
	case gateway.TableActivities:
		s.applyActivity(ev)
	case gateway.TableVotes:
		s.applyVote(ev)
	case gateway.TableMessages:
		s.applyMessage(ev)
	default:
		s.log.Debug("event for unwatched table", "table", ev.Table)
	}
}

func (s *Subscriber) applyTrip(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert, gateway.EventUpdate:
		var row gateway.TripRow
		if err := ev.DecodeNew(&row); err != nil {
			s.log.Warn("undecodable trip event", "error", err)
			return
		}
		// A soft delete arrives as an UPDATE with deleted_at set.
		if row.DeletedAt != nil {
			s.st.RemoveTrip(row.ID)
			return
		}
		if ev.Type == gateway.EventInsert {
			s.st.AddTrip(mapper.Trip(row))
		} else {
			s.st.UpdateTrip(mapper.Trip(row))
		}
	case gateway.EventDelete:
		var row gateway.TripRow
		if err := ev.DecodeOld(&row); err != nil {
			s.log.Warn("undecodable trip delete", "error", err)
			return
		}
		s.st.RemoveTrip(row.ID)
	}
}

func (s *Subscriber) applyActivity(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert, gateway.EventUpdate:
		var row gateway.ActivityRow
		if err := ev.DecodeNew(&row); err != nil {
			s.log.Warn("undecodable activity event", "error", err)
			return
		}
		if row.DeletedAt != nil {
			s.st.RemoveActivity(row.ID)
			return
		}
		if ev.Type == gateway.EventInsert {
			s.st.AddActivity(mapper.Activity(row))
		} else {
			s.st.UpdateActivity(mapper.Activity(row))
		}
	case gateway.EventDelete:
		var row gateway.ActivityRow
		if err := ev.DecodeOld(&row); err != nil {
			s.log.Warn("undecodable activity delete", "error", err)
			return
		}
		s.st.RemoveActivity(row.ID)
	}
}

// applyVote filters the unfiltered vote feed by membership of the affected
// activity in the loaded set, then applies with per-user replacement so a
// feed echo of an own upsert cannot duplicate.
func (s *Subscriber) applyVote(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert, gateway.EventUpdate:
		var row gateway.VoteRow
		if err := ev.DecodeNew(&row); err != nil {
			s.log.Warn("undecodable vote event", "error", err)
			return
		}
		if !s.st.HasActivity(row.ActivityID) {
			s.log.Debug("vote for unloaded activity dropped", "activity_id", row.ActivityID)
			return
		}
		s.st.SetUserVote(mapper.Vote(row))
	case gateway.EventDelete:
		var row gateway.VoteRow
		if err := ev.DecodeOld(&row); err != nil {
			s.log.Warn("undecodable vote delete", "error", err)
			return
		}
		s.st.RemoveVote(row.ActivityID, row.ID)
	}
}

func (s *Subscriber) applyMessage(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert, gateway.EventUpdate:
		var row gateway.MessageRow
		if err := ev.DecodeNew(&row); err != nil {
			s.log.Warn("undecodable message event", "error", err)
			return
		}
		if row.DeletedAt != nil {
			s.st.RemoveMessage(row.ID)
			return
		}
		if ev.Type == gateway.EventInsert {
			s.st.AddMessage(mapper.Message(row))
		} else {
			s.st.UpdateMessage(mapper.Message(row))
		}
	case gateway.EventDelete:
		var row gateway.MessageRow
		if err := ev.DecodeOld(&row); err != nil {
			s.log.Warn("undecodable message delete", "error", err)
			return
		}
		s.st.RemoveMessage(row.ID)
	}
}
