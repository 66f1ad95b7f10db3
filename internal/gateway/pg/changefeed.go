package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/pmallory/tripsync/internal/gateway"
)

// notifyChannel is the single Postgres NOTIFY channel all row-change
// triggers emit on. Fan-out to per-topic subscriptions happens here, not in
// the database.
const notifyChannel = "tripsync_changes"

// notification is the JSON payload the triggers build. trip_id is empty for
// tables that carry no trip id (votes); such events pass every topic filter
// and are discarded downstream.
type notification struct {
	Table  gateway.Table     `json:"table"`
	Type   gateway.EventType `json:"type"`
	TripID string            `json:"trip_id,omitempty"`
	New    json.RawMessage   `json:"new,omitempty"`
	Old    json.RawMessage   `json:"old,omitempty"`
}

// Changefeed turns Postgres LISTEN/NOTIFY into gateway.Changefeed. One
// dedicated connection listens; events fan out to every matching
// subscription. If the listening connection drops, all open subscriptions
// are closed so consumers see the gap instead of a silently resumed stream,
// and the listener reconnects with backoff. Events emitted during the gap
// are gone; consumers pick them up on their next explicit load.
type Changefeed struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	mu      sync.Mutex
	subs    map[*subscription]struct{}
	started bool
	cancel  context.CancelFunc
}

var _ gateway.Changefeed = (*Changefeed)(nil)

// NewChangefeed constructs a Changefeed over the pool. The listening
// goroutine starts lazily on the first Subscribe.
func NewChangefeed(pool *pgxpool.Pool, log *slog.Logger) *Changefeed {
	if log == nil {
		log = slog.Default()
	}
	return &Changefeed{
		pool: pool,
		log:  log,
		subs: make(map[*subscription]struct{}),
	}
}

// Subscribe opens a channel of change events for the topic.
func (f *Changefeed) Subscribe(ctx context.Context, topic gateway.Topic) (gateway.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pg.Changefeed.Subscribe: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		runCtx, cancel := context.WithCancel(context.Background())
		f.cancel = cancel
		f.started = true
		go f.listen(runCtx)
	}

	sub := &subscription{
		topic:  topic,
		events: make(chan gateway.ChangeEvent, 64),
		remove: f.removeSub,
	}
	f.subs[sub] = struct{}{}
	return sub, nil
}

// Close stops the listener and closes all open subscriptions.
func (f *Changefeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.started = false
	f.closeAllLocked()
	return nil
}

// listen holds the dedicated connection and pumps notifications until ctx is
// canceled. Each pass acquires a fresh connection with exponential backoff
// capped at 30s.
func (f *Changefeed) listen(ctx context.Context) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))

	for ctx.Err() == nil {
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := f.pump(ctx); err != nil {
				f.log.Warn("changefeed listener lost connection", "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			f.log.Error("changefeed listener giving up pass", "error", err)
		}
	}
}

// pump runs one LISTEN session until the connection fails or ctx ends.
func (f *Changefeed) pump(ctx context.Context) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Drop every subscriber channel so the gap is visible;
			// resuming silently would hide the missed events.
			f.mu.Lock()
			f.closeAllLocked()
			f.mu.Unlock()
			return fmt.Errorf("wait: %w", err)
		}
		f.dispatch([]byte(n.Payload))
	}
}

// dispatch decodes one notification payload and fans it out to every
// matching subscription. Full subscriber channels drop the event; the slow
// consumer reconciles on its next reload.
func (f *Changefeed) dispatch(payload []byte) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		f.log.Warn("changefeed dropping malformed payload", "error", err)
		return
	}

	ev := gateway.ChangeEvent{Table: n.Table, Type: n.Type, New: n.New, Old: n.Old}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if !sub.topic.Matches(n.Table, n.TripID) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			f.log.Warn("changefeed dropping event for slow subscriber",
				"topic", sub.topic.Key(), "table", n.Table)
		}
	}
}

func (f *Changefeed) removeSub(sub *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
}

// closeAllLocked closes every subscription channel. Callers hold f.mu.
func (f *Changefeed) closeAllLocked() {
	for sub := range f.subs {
		sub.closeChan()
		delete(f.subs, sub)
	}
}

// subscription is one open topic channel.
type subscription struct {
	topic  gateway.Topic
	events chan gateway.ChangeEvent
	remove func(*subscription)
	once   sync.Once
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.events }

func (s *subscription) Close() error {
	s.remove(s)
	s.closeChan()
	return nil
}

func (s *subscription) closeChan() {
	s.once.Do(func() { close(s.events) })
}
