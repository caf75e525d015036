// Package replayroom implements the Replay Room (component G): streams a
// finished game's stored events back out with their original relative
// timing. Playback is anonymous; no token is required to join.
package replayroom

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hexterritory/internal/data"
	"hexterritory/internal/roomrt"
)

// normalizedEvent is a stored event with its timestamp rebased to the
// first event's timestamp, so offset 0 is the start of the game.
type normalizedEvent struct {
	event  data.Event
	offset time.Duration
}

// Room streams one game's event log to anonymous viewers.
type Room struct {
	id     string
	gameID string
	log    *zap.Logger

	rt       *roomrt.Runtime
	presence *roomrt.Presence

	events    []normalizedEvent
	playing   bool
}

// New loads gameID's event list and normalizes timestamps. Playback does
// not start until the first viewer joins.
func New(ctx context.Context, id, gameID string, eventStore *data.Events, rt *roomrt.Runtime, log *zap.Logger) (*Room, error) {
	raw, err := eventStore.List(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var normalized []normalizedEvent
	if len(raw) > 0 {
		base := raw[0].Timestamp
		for _, ev := range raw {
			normalized = append(normalized, normalizedEvent{
				event:  ev,
				offset: time.Duration(ev.Timestamp-base) * time.Millisecond,
			})
		}
	}

	return &Room{
		id:       id,
		gameID:   gameID,
		log:      log.With(zap.String("replayId", id), zap.String("gameId", gameID)),
		rt:       rt,
		presence: roomrt.NewPresence(),
		events:   normalized,
	}, nil
}

func (r *Room) ID() string { return r.id }

func (r *Room) Joined(client *roomrt.Client) {}

func (r *Room) Left(client *roomrt.Client) {
	if client.PlayerID != "" {
		r.presence.Remove(client.PlayerID, client)
	}
}

type joinMsg struct {
	ViewerID string `json:"viewerId"`
}

// HandleMessage is only ever invoked from this room's actor goroutine.
func (r *Room) HandleMessage(client *roomrt.Client, msgType string, raw []byte) {
	switch msgType {
	case "join":
		r.handleJoin(client, raw)
	default:
		r.log.Debug("unhandled replay message", zap.String("type", msgType))
	}
}

func (r *Room) handleJoin(client *roomrt.Client, raw []byte) {
	var msg joinMsg
	_ = json.Unmarshal(raw, &msg)
	viewerID := msg.ViewerID
	if viewerID == "" {
		viewerID = "viewer-" + uuid.NewString()
	}
	r.presence.Adopt(viewerID, client)
	client.PlayerID = viewerID
	client.RoomID = r.id

	client.Send(map[string]interface{}{"type": "replayInfo", "gameId": r.gameID, "totalEvents": len(r.events)})

	if len(r.events) > 0 && !r.playing {
		r.playing = true
		r.schedulePlayback()
	} else if len(r.events) == 0 {
		client.Send(map[string]interface{}{"type": "replayEnd"})
	}
}

// schedulePlayback broadcasts one event per normalized offset, finishing
// with replayEnd. Each step is rescheduled onto this room's actor so
// playback serializes with late viewer joins.
func (r *Room) schedulePlayback() {
	r.playbackStep(0, time.Now())
}

func (r *Room) playbackStep(index int, start time.Time) {
	if index >= len(r.events) {
		r.broadcast(map[string]interface{}{"type": "replayEnd"})
		r.playing = false
		return
	}

	ev := r.events[index]
	delay := time.Until(start.Add(ev.offset))
	if delay < 0 {
		delay = 0
	}

	time.AfterFunc(delay, func() {
		r.rt.Schedule(r.id, func() {
			r.broadcast(map[string]interface{}{
				"type": "update", "q": ev.event.Q, "r": ev.event.R, "color": ev.event.Color,
				"eventType": ev.event.EventType,
			})
			r.playbackStep(index+1, start)
		})
	})
}

func (r *Room) broadcast(v interface{}) {
	r.presence.Each(func(_ string, c *roomrt.Client) {
		c.Send(v)
	})
}
