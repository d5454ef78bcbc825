package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/engine"
	"github.com/mapveto/mapban-backend/internal/format"
	"github.com/mapveto/mapban-backend/internal/hub"
	"github.com/mapveto/mapban-backend/internal/lobby"
	"github.com/mapveto/mapban-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

// LobbyHandler joins a connection to a lobby session. Query params:
// code (required, joining creates the lobby), format (bo1|bo3|bo5,
// creation only), observer (non-empty joins the broadcast view),
// session (reconnection key; generated and reported in the hello
// message when absent, so a reconnect keeps its team binding).
func LobbyHandler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		f, ok := format.Parse(r.URL.Query().Get("format"))
		if !ok {
			f = format.BO1
		}
		observer := r.URL.Query().Get("observer") != ""
		session := r.URL.Query().Get("session")
		if session == "" {
			session = uuid.NewString()
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{Code: code, Format: f, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Outbound, 16)
		lb.Inbox() <- lobby.Join{Key: session, Observer: observer, Outbox: out}
		defer func() { lb.Inbox() <- lobby.Leave{Key: session, Outbox: out} }()

		log.Info("client joined",
			zap.String("lobby", code),
			zap.String("session", session),
			zap.Bool("observer", observer))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()

		writeMsg(writeCtx, conn, types.ServerMessage{Type: "hello", Session: session, LobbyID: code})

		// Writer goroutine: drains the lobby outbox until it closes
		// (leave, drop or lobby deletion).
		go func() {
			for ev := range out {
				writeMsg(writeCtx, conn, toServerMessage(code, ev))
			}
			conn.Close(websocket.StatusNormalClosure, "lobby closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMsg(writeCtx, conn, types.ServerMessage{Type: "error", Error: "bad json"})
				continue
			}

			switch cm.Type {
			case "play":
				lb.Inbox() <- lobby.Play{}
			case "message":
				lb.Inbox() <- lobby.Chat{From: session, Body: cm.Body}
			default:
				cmd, ok := toCommand(session, cm)
				if !ok {
					writeMsg(writeCtx, conn, types.ServerMessage{Type: "error", Error: "unknown type"})
					continue
				}
				lb.Inbox() <- lobby.FromClient{Key: session, Cmd: cmd}
			}
		}
	}
}

// AdminHandler serves the moderation console: it receives the
// admin-wide lobby lifecycle feed and accepts commands addressed by
// lobbyId.
func AdminHandler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.NewString()
		out := make(chan hub.AdminEvent, 16)
		h.Inbox() <- hub.SubscribeAdmin{ID: id, Outbox: out}
		defer func() { h.Inbox() <- hub.UnsubscribeAdmin{ID: id} }()

		log.Info("admin connected", zap.String("session", id))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()

		go func() {
			for ev := range out {
				writeMsg(writeCtx, conn, types.ServerMessage{Type: ev.Type, LobbyID: ev.Code})
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				return
			}

			var am types.AdminMessage
			if err := json.Unmarshal(data, &am); err != nil {
				writeMsg(writeCtx, conn, types.ServerMessage{Type: "error", Error: "bad json"})
				continue
			}

			switch am.Type {
			case "coinFlipUpdate":
				h.Inbox() <- hub.SetCoinFlip{Enabled: am.Enabled}

			case "delete":
				h.Inbox() <- hub.RemoveLobby{Code: am.LobbyID, Notify: true}

			case "start", "clear", "play":
				reply := make(chan *lobby.Lobby, 1)
				h.Inbox() <- hub.GetLobby{Code: am.LobbyID, Reply: reply}
				lb := <-reply
				if lb == nil {
					writeMsg(writeCtx, conn, types.ServerMessage{Type: "error", LobbyID: am.LobbyID, Error: engine.ErrNotFound.Error()})
					continue
				}
				switch am.Type {
				case "start":
					lb.Inbox() <- lobby.FromClient{Key: id, Cmd: engine.Command{Type: engine.CmdStart}}
				case "clear":
					lb.Inbox() <- lobby.FromClient{Key: id, Cmd: engine.Command{Type: engine.CmdClear}}
				case "play":
					lb.Inbox() <- lobby.Play{}
				}

			default:
				writeMsg(writeCtx, conn, types.ServerMessage{Type: "error", Error: "unknown type"})
			}
		}
	}
}

func toCommand(session string, m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "setTeamName":
		if strings.TrimSpace(m.Name) == "" {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdSetTeamName, Key: session, Name: m.Name}, true
	case "ban":
		return engine.Command{Type: engine.CmdBan, Key: session, Map: m.Map}, true
	case "pick":
		return engine.Command{Type: engine.CmdPick, Key: session, Map: m.Map, Side: format.Side(strings.ToUpper(m.Side))}, true
	case "start":
		return engine.Command{Type: engine.CmdStart, Key: session}, true
	case "clear":
		return engine.Command{Type: engine.CmdClear, Key: session}, true
	default:
		return engine.Command{}, false
	}
}

func toServerMessage(code string, ev lobby.Outbound) types.ServerMessage {
	return types.ServerMessage{
		Type:    ev.Type,
		LobbyID: code,
		Version: ev.Version,
		State:   ev.State,
		From:    ev.From,
		Body:    ev.Body,
		Error:   ev.Error,
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
