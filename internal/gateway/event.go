package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// Table names the collections the changefeed can watch.
type Table string

const (
	TableTrips      Table = "trips"
	TableActivities Table = "activities"
	TableVotes      Table = "votes"
	TableMessages   Table = "messages"
)

// EventType tags a change notification.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one push notification from the gateway. New carries the row
// after the change (INSERT, UPDATE); Old carries the row before it (UPDATE,
// DELETE). Payloads stay raw until the subscriber knows which row type to
// decode; this is also the exact frame shape on the websocket wire.
type ChangeEvent struct {
	Table Table           `json:"table"`
	Type  EventType       `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// DecodeNew unmarshals the post-change row into dst.
func (e ChangeEvent) DecodeNew(dst any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("gateway.ChangeEvent.DecodeNew: no new payload")
	}
	return json.Unmarshal(e.New, dst)
}

// DecodeOld unmarshals the pre-change row into dst.
func (e ChangeEvent) DecodeOld(dst any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("gateway.ChangeEvent.DecodeOld: no old payload")
	}
	return json.Unmarshal(e.Old, dst)
}

// Topic scopes a changefeed subscription to one table, optionally filtered
// to one trip. An empty TripID subscribes to the whole table.
//
// Votes carry no trip id, so vote topics are always unfiltered and the
// subscriber discards events for activities it has not loaded. A server-side
// filter would need a denormalized trip id on votes; this is a known,
// documented limitation of the schema.
type Topic struct {
	Table  Table  `json:"table"`
	TripID string `json:"trip_id,omitempty"`
}

// Key returns a stable channel name for the topic, e.g.
// "trip:8f3…:activities" or "votes:all".
func (t Topic) Key() string {
	if t.TripID == "" {
		return string(t.Table) + ":all"
	}
	return "trip:" + t.TripID + ":" + string(t.Table)
}

// Matches reports whether an event for (table, tripID) falls inside this
// topic. Events whose trip id is unknown to the producer pass any filter and
// are left to the consumer to discard.
func (t Topic) Matches(table Table, tripID string) bool {
	if table != t.Table {
		return false
	}
	return t.TripID == "" || tripID == "" || t.TripID == tripID
}

// Subscription is one open changefeed channel. Events is closed when the
// subscription ends, either by Close or because the transport dropped.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Changefeed opens push-notification channels. Subscribe blocks only while
// establishing the channel; delivery happens asynchronously afterwards.
type Changefeed interface {
	Subscribe(ctx context.Context, topic Topic) (Subscription, error)
}
