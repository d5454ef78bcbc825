// Package hub owns the registry of live lobbies and the admin-wide
// event channel. Like the lobby it is a single-goroutine actor, so
// create/get/delete are serialized; per-lobby gameplay runs in the
// lobby's own goroutine and is never blocked by another lobby.
package hub

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/engine"
	"github.com/mapveto/mapban-backend/internal/format"
	"github.com/mapveto/mapban-backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type CreateLobby struct {
	Code   string
	Format format.Format
	Admin  bool
	Reply  chan CreateResult
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby creates on first join; Format only applies if creation
// happens.
type EnsureLobby struct {
	Code   string
	Format format.Format
	Reply  chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
	// Notify broadcasts lobbyDeleted to the lobby's own channel.
	Notify bool
}

type Ref struct {
	Code  string
	Lobby *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []Ref
}

type SubscribeAdmin struct {
	ID     string
	Outbox chan AdminEvent
}

type UnsubscribeAdmin struct{ ID string }

// SetCoinFlip updates the global default and forwards the flag to
// every live lobby. Started sessions keep their resolved slots.
type SetCoinFlip struct{ Enabled bool }

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()      {}
func (GetLobby) isHubMsg()         {}
func (EnsureLobby) isHubMsg()      {}
func (RemoveLobby) isHubMsg()      {}
func (ListLobbies) isHubMsg()      {}
func (SubscribeAdmin) isHubMsg()   {}
func (UnsubscribeAdmin) isHubMsg() {}
func (SetCoinFlip) isHubMsg()      {}
func (ShutdownHub) isHubMsg()      {}

// AdminEvent is a lobby-lifecycle notification on the admin-wide
// channel.
type AdminEvent struct {
	Type string `json:"type"` // "lobbyCreated" | "lobbyDeleted"
	Code string `json:"lobbyId"`
}

type Options struct {
	Logger *zap.Logger
	Clock  clockwork.Clock
	// Grace is the empty-lobby GC grace period passed to each lobby.
	Grace time.Duration
	// CoinFlipDefault seeds the coin-flip flag of new lobbies.
	CoinFlipDefault bool
}

type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	admins   map[string]chan AdminEvent
	expired  chan string
	coinFlip bool
	log      *zap.Logger
	clock    clockwork.Clock
	grace    time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		admins:   make(map[string]chan AdminEvent),
		expired:  make(chan string, 16),
		coinFlip: opts.CoinFlipDefault,
		log:      opts.Logger,
		clock:    opts.Clock,
		grace:    opts.Grace,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case code := <-h.expired:
			// A lobby sat empty past the grace period.
			h.remove(code, true)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- CreateResult{Err: engine.ErrAlreadyExists}
					break
				}
				msg.Reply <- CreateResult{Lobby: h.create(msg.Code, msg.Format, msg.Admin)}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.create(msg.Code, msg.Format, false)

			case RemoveLobby:
				h.remove(msg.Code, msg.Notify)

			case ListLobbies:
				refs := make([]Ref, 0, len(h.lobbies))
				for code, lb := range h.lobbies {
					refs = append(refs, Ref{Code: code, Lobby: lb})
				}
				msg.Reply <- refs

			case SubscribeAdmin:
				h.admins[msg.ID] = msg.Outbox

			case UnsubscribeAdmin:
				delete(h.admins, msg.ID)

			case SetCoinFlip:
				h.coinFlip = msg.Enabled
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.FromClient{Key: "admin", Cmd: engine.Command{
						Type:    engine.CmdSetCoinFlip,
						Enabled: msg.Enabled,
					}}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(code string, f format.Format, admin bool) *lobby.Lobby {
	state := engine.NewState(code, f, h.coinFlip, admin)
	lb := lobby.New(h.ctx, state, lobby.Options{
		Logger:  h.log,
		Clock:   h.clock,
		Grace:   h.grace,
		Expired: h.expired,
	})
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("lobby", code), zap.String("format", string(f)))
	// Admin-created lobbies stay off the created feed; the console
	// already knows about them. Deletions always broadcast.
	if !admin {
		h.adminBroadcast(AdminEvent{Type: "lobbyCreated", Code: code})
	}
	return lb
}

// remove is idempotent: deleting an unknown code is a no-op.
func (h *Hub) remove(code string, notify bool) {
	lb, ok := h.lobbies[code]
	if !ok {
		return
	}
	delete(h.lobbies, code)
	lb.Inbox() <- lobby.Shutdown{Notify: notify}
	h.log.Info("lobby deleted", zap.String("lobby", code))
	h.adminBroadcast(AdminEvent{Type: "lobbyDeleted", Code: code})
}

func (h *Hub) adminBroadcast(ev AdminEvent) {
	for id, ch := range h.admins {
		select {
		case ch <- ev:
			// ok
		default:
			close(ch)
			delete(h.admins, id)
		}
	}
}

func (h *Hub) shutdown() {
	for code, lb := range h.lobbies {
		lb.Inbox() <- lobby.Shutdown{}
		delete(h.lobbies, code)
	}
	for id, ch := range h.admins {
		close(ch)
		delete(h.admins, id)
	}
	h.cancel()
}
