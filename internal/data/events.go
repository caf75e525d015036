package data

import (
	"context"
	"encoding/json"

	"hexterritory/internal/apperr"
	"hexterritory/internal/kvstore"
)

const eventLogCap = 10000

// EventType enumerates the kinds of events appended to a game's log.
type EventType string

const (
	EventStart       EventType = "start"
	EventCapture     EventType = "capture"
	EventAutoCapture EventType = "auto-capture"
	EventUpgrade     EventType = "upgrade"
)

// Event is one append-only log entry (§3 Data Model). Ordering is
// significant: implementations MUST NOT reorder.
type Event struct {
	GameID    string    `json:"gameId"`
	PlayerID  string    `json:"playerId"`
	Color     string    `json:"color"`
	Q         int       `json:"q"`
	R         int       `json:"r"`
	EventType EventType `json:"eventType"`
	Timestamp int64     `json:"timestamp"` // unix millis
}

// Events is the event log sub-layer of the Game Data Layer.
type Events struct {
	kv *kvstore.Store
}

func NewEvents(kv *kvstore.Store) *Events {
	return &Events{kv: kv}
}

// Save appends an event, trimming the list to the most recent 10,000
// entries. LPUSH writes newest-first; List below restores chronological
// order for replay consumers.
func (e *Events) Save(ctx context.Context, ev Event) error {
	buf, err := json.Marshal(ev)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal event", err)
	}
	key := kvstore.GameEventsKey(ev.GameID)
	if err := e.kv.ListLPush(ctx, key, string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "append event", err)
	}
	if err := e.kv.ListLTrim(ctx, key, 0, eventLogCap-1); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "trim event log", err)
	}
	return nil
}

// List returns every stored event for a game in original insertion order
// (oldest first).
func (e *Events) List(ctx context.Context, gameID string) ([]Event, error) {
	raw, err := e.kv.ListLRange(ctx, kvstore.GameEventsKey(gameID), 0, -1)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load events", err)
	}

	events := make([]Event, len(raw))
	for i, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "decode event", err)
		}
		// raw is newest-first (LPUSH order); reverse into chronological order.
		events[len(raw)-1-i] = ev
	}
	return events, nil
}
