package roomrt

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Room is implemented by Lobby, Game and Replay rooms. HandleMessage and
// Joined/Left are only ever invoked from the room's own actor goroutine, so
// implementations need no internal locking for their own state.
type Room interface {
	ID() string
	Joined(client *Client)
	Left(client *Client)
	HandleMessage(client *Client, msgType string, raw []byte)
}

// envelope is either a parsed inbound message (client/msgType/raw set) or a
// scheduled closure (fn set) — timer firings and inbound messages share one
// queue so they serialize through the same actor goroutine.
type envelope struct {
	client  *Client
	msgType string
	raw     []byte
	fn      func()
}

// roomActor serializes every inbound message and timer firing for one room
// through a single goroutine, matching the single-writer actor model (§5).
type roomActor struct {
	room  Room
	inbox chan envelope
	done  chan struct{}
}

func newRoomActor(room Room) *roomActor {
	a := &roomActor{
		room:  room,
		inbox: make(chan envelope, 64),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *roomActor) run() {
	for {
		select {
		case env := <-a.inbox:
			if env.fn != nil {
				env.fn()
				continue
			}
			a.room.HandleMessage(env.client, env.msgType, env.raw)
		case <-a.done:
			return
		}
	}
}

// Post enqueues a message for serial processing; it is a no-op if the actor
// has stopped.
func (a *roomActor) Post(client *Client, msgType string, raw []byte) {
	select {
	case a.inbox <- envelope{client: client, msgType: msgType, raw: raw}:
	case <-a.done:
	}
}

func (a *roomActor) Stop() {
	close(a.done)
}

func (a *roomActor) postFunc(fn func()) {
	select {
	case a.inbox <- envelope{fn: fn}:
	case <-a.done:
	}
}

// Runtime hosts every live room and owns registration/dispatch/disposal.
type Runtime struct {
	mu    sync.RWMutex
	rooms map[string]*roomActor
	log   *zap.Logger
}

func New(log *zap.Logger) *Runtime {
	return &Runtime{rooms: make(map[string]*roomActor), log: log}
}

// Register adds a room to the runtime and starts its actor goroutine.
func (rt *Runtime) Register(room Room) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.rooms[room.ID()] = newRoomActor(room)
	rt.log.Info("room registered", zap.String("roomId", room.ID()))
}

// Dispose stops a room's actor and removes it from the runtime.
func (rt *Runtime) Dispose(roomID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if actor, ok := rt.rooms[roomID]; ok {
		actor.Stop()
		delete(rt.rooms, roomID)
		rt.log.Info("room disposed", zap.String("roomId", roomID))
	}
}

// Exists reports whether a room is currently registered.
func (rt *Runtime) Exists(roomID string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.rooms[roomID]
	return ok
}

// Dispatch posts a parsed inbound frame onto the named room's actor.
func (rt *Runtime) Dispatch(roomID string, client *Client, msgType string, raw []byte) error {
	rt.mu.RLock()
	actor, ok := rt.rooms[roomID]
	rt.mu.RUnlock()
	if !ok {
		return fmt.Errorf("room %s not found", roomID)
	}
	actor.Post(client, msgType, raw)
	return nil
}

// Schedule runs fn serialized with the room's other inbound messages; used
// for timer-driven work (economy tick, auto-expansion, countdown).
func (rt *Runtime) Schedule(roomID string, fn func()) bool {
	rt.mu.RLock()
	actor, ok := rt.rooms[roomID]
	rt.mu.RUnlock()
	if !ok {
		return false
	}
	actor.postFunc(fn)
	return true
}

// Join posts a newly upgraded client's arrival onto the room's actor.
func (rt *Runtime) Join(roomID string, client *Client) {
	rt.mu.RLock()
	actor, ok := rt.rooms[roomID]
	rt.mu.RUnlock()
	if ok {
		actor.postFunc(func() { actor.room.Joined(client) })
	}
}

// Leave posts a client's disconnect onto the room's actor so Room.Left runs
// serialized with the room's other message handling.
func (rt *Runtime) Leave(roomID string, client *Client) {
	rt.mu.RLock()
	actor, ok := rt.rooms[roomID]
	rt.mu.RUnlock()
	if ok {
		actor.postFunc(func() { actor.room.Left(client) })
	}
}
