package types

import (
	"encoding/json"

	"github.com/mapveto/mapban-backend/internal/engine"
)

// ClientMessage is what a lobby socket sends. Type is one of
// "setTeamName" | "ban" | "pick" | "start" | "clear" | "play" | "message".
type ClientMessage struct {
	Type string          `json:"type"`
	Name string          `json:"name,omitempty"`
	Map  string          `json:"map,omitempty"`
	Side string          `json:"side,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`
}

// AdminMessage is what the admin console socket sends. Type is one of
// "start" | "clear" | "play" | "delete" (with lobbyId) or
// "coinFlipUpdate" (global).
type AdminMessage struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}

// ServerMessage is the single outbound envelope for both socket kinds.
type ServerMessage struct {
	Type    string          `json:"type"` // "hello" | "state" | "sessionComplete" | "play" | "message" | "error" | "lobbyCreated" | "lobbyDeleted"
	Session string          `json:"session,omitempty"`
	LobbyID string          `json:"lobbyId,omitempty"`
	Version int             `json:"version,omitempty"`
	State   *engine.State   `json:"state,omitempty"`
	From    string          `json:"from,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
	Error   string          `json:"error,omitempty"`
}
