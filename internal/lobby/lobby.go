// Package lobby runs one goroutine per veto session. The inbox
// serializes every mutation, so turn-order and map-pool invariants
// cannot be raced from concurrent connections; broadcast is
// fire-and-forget with respect to the mutation.
package lobby

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/engine"
)

type Msg interface{ isLobbyMsg() }

// FromClient carries an engine command. Key identifies the sender so
// rejections go back to it alone.
type FromClient struct {
	Key string
	Cmd engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	Key      string
	Observer bool
	Outbox   chan Outbound // where this client wants to receive events
}

func (Join) isLobbyMsg() {}

// Leave removes a connection. Outbox, when set, must match the
// subscribed channel: a stale leave from a connection that was already
// replaced by a reconnect is ignored, so the live subscriber survives.
type Leave struct {
	Key    string
	Outbox chan Outbound
}

func (Leave) isLobbyMsg() {}

// Play triggers the pick animation on observer views. No state change.
type Play struct{}

func (Play) isLobbyMsg() {}

// Chat is an opaque passthrough; the core does not interpret the body.
type Chat struct {
	From string
	Body json.RawMessage
}

func (Chat) isLobbyMsg() {}

type Shutdown struct {
	// Notify broadcasts a lobbyDeleted event before closing outboxes.
	Notify bool
}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Outbound is a single event delivered to a subscriber.
type Outbound struct {
	Type    string // "state" | "sessionComplete" | "play" | "message" | "error" | "lobbyDeleted"
	Version int
	State   *engine.State
	Error   string
	From    string
	Body    json.RawMessage
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type subscriber struct {
	out      chan Outbound
	observer bool
}

type Options struct {
	Logger *zap.Logger
	Clock  clockwork.Clock
	// Grace is how long the lobby may sit with zero subscribers before
	// it reports itself on Expired. Zero disables the GC.
	Grace   time.Duration
	Expired chan<- string
}

type Lobby struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]*subscriber
	log     *zap.Logger
	clock   clockwork.Clock
	grace   time.Duration
	expired chan<- string
	gcTimer clockwork.Timer
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, initial engine.State, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: 0,
		clients: make(map[string]*subscriber),
		log:     opts.Logger.With(zap.String("lobby", initial.Code)),
		clock:   opts.Clock,
		grace:   opts.Grace,
		expired: opts.Expired,
		ctx:     ctx,
		cancel:  cancel,
	}

	// A lobby nobody ever joins still gets collected.
	l.armGC()

	go l.loop()
	return l
}

// Inbox exposes the message channel to the WS layer, hub and tests.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown(false)
			return

		case <-l.gcChan():
			l.gcTimer = nil
			if len(l.clients) > 0 {
				break
			}
			// Hand the code to the hub; it owns removal and the
			// admin-wide broadcast. Re-arm if the hub is busy.
			select {
			case l.expired <- l.state.Code:
			default:
				l.armGC()
			}

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Reconnect under the same key: the fresh socket wins
				// and the replaced connection's outbox is closed.
				if old, ok := l.clients[msg.Key]; ok && old.out != msg.Outbox {
					close(old.out)
				}
				l.clients[msg.Key] = &subscriber{out: msg.Outbox, observer: msg.Observer}
				l.state = engine.AddMember(l.state, msg.Key, msg.Observer)
				l.version++
				l.broadcast(l.snapshot("state"))
				l.disarmGC()

			case Leave:
				sub, ok := l.clients[msg.Key]
				if !ok || (msg.Outbox != nil && sub.out != msg.Outbox) {
					// Already dropped, or a stale leave from a
					// connection that was replaced by a reconnect.
					break
				}
				close(sub.out)
				delete(l.clients, msg.Key)
				l.state = engine.RemoveMember(l.state, msg.Key)
				l.version++
				l.broadcast(l.snapshot("state"))
				if len(l.clients) == 0 {
					l.armGC()
				}

			case FromClient:
				events, newState, err := engine.Apply(l.state, msg.Cmd)
				if err != nil {
					// Rejection: reply to the sender only, no state
					// change, no broadcast.
					l.replyError(msg.Key, err)
					break
				}
				l.state = newState
				l.version++
				l.broadcast(l.snapshot("state"))
				if engine.ContainsEvent(events, engine.EvtSessionCompleted) {
					l.broadcast(l.snapshot("sessionComplete"))
				}

			case Play:
				l.broadcastObservers(Outbound{Type: "play"})

			case Chat:
				l.broadcast(Outbound{Type: "message", From: msg.From, Body: msg.Body})

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown(msg.Notify)
				return
			}
		}
	}
}

func (l *Lobby) snapshot(typ string) Outbound {
	st := l.state
	return Outbound{Type: typ, Version: l.version, State: &st}
}

func (l *Lobby) replyError(key string, err error) {
	sub, ok := l.clients[key]
	if !ok {
		return
	}
	select {
	case sub.out <- Outbound{Type: "error", Error: err.Error()}:
	default:
		close(sub.out)
		delete(l.clients, key)
	}
}

func (l *Lobby) broadcast(ev Outbound) {
	for key, sub := range l.clients {
		select {
		case sub.out <- ev:
			// ok
		default:
			// Client is slow/full - drop it rather than stall the rest.
			l.log.Debug("dropping slow subscriber", zap.String("client", key))
			close(sub.out)
			delete(l.clients, key)
		}
	}
	if len(l.clients) == 0 && l.gcTimer == nil {
		l.armGC()
	}
}

func (l *Lobby) broadcastObservers(ev Outbound) {
	for key, sub := range l.clients {
		if !sub.observer {
			continue
		}
		select {
		case sub.out <- ev:
		default:
			close(sub.out)
			delete(l.clients, key)
		}
	}
}

func (l *Lobby) armGC() {
	if l.grace <= 0 || l.expired == nil || l.gcTimer != nil {
		return
	}
	l.gcTimer = l.clock.NewTimer(l.grace)
}

func (l *Lobby) disarmGC() {
	if l.gcTimer != nil {
		l.gcTimer.Stop()
		l.gcTimer = nil
	}
}

func (l *Lobby) gcChan() <-chan time.Time {
	if l.gcTimer == nil {
		return nil
	}
	return l.gcTimer.Chan()
}

func (l *Lobby) shutdown(notify bool) {
	if notify {
		l.broadcast(Outbound{Type: "lobbyDeleted"})
	}
	for key, sub := range l.clients {
		close(sub.out) // Tell client no more events
		delete(l.clients, key)
	}
	l.disarmGC()
	l.cancel()
}
