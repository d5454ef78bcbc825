package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/engine"
	"github.com/mapveto/mapban-backend/internal/format"
	"github.com/mapveto/mapban-backend/internal/hub"
	"github.com/mapveto/mapban-backend/internal/lobby"
)

const (
	stateTimeout = 2 * time.Second

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// maxCodeAttempts bounds collision retries when minting a code.
	maxCodeAttempts = 10
)

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// generateCode is stubbable so tests can force code collisions.
var generateCode = GenerateCode

type createLobbyRequest struct {
	Format string `json:"format"`
	Admin  bool   `json:"admin"`
}

// CreateLobby mints a fresh code and registers the lobby. Admin-created
// lobbies are flagged so the hub keeps them off the lobbyCreated feed.
func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
		}
		f, ok := format.Parse(req.Format)
		if !ok {
			f = format.BO1
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := generateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}

			reply := make(chan hub.CreateResult, 1)
			h.Inbox() <- hub.CreateLobby{Code: code, Format: f, Admin: req.Admin, Reply: reply}
			res := <-reply
			if errors.Is(res.Err, engine.ErrAlreadyExists) {
				log.Debug("lobby code collision, regenerating", zap.String("lobby", code))
				continue
			}
			if res.Err != nil || res.Lobby == nil {
				http.Error(w, "failed to create lobby", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(struct {
				Code string `json:"code"`
			}{Code: code})
			return
		}
		http.Error(w, "failed to allocate lobby code", http.StatusInternalServerError)
	}
}

// LobbyProjection is one row of the admin snapshot. The embedded state
// is a per-lobby consistent copy taken through the lobby's own actor.
type LobbyProjection struct {
	engine.State
	Phase   engine.Phase `json:"phase"`
	Version int          `json:"version"`
	Clients int          `json:"clients"`
}

// AdminLobbies enumerates every active lobby for the moderation
// console. Per-lobby consistency comes from the actor round trip;
// cross-lobby consistency is not promised.
func AdminLobbies(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refs := make(chan []hub.Ref, 1)
		h.Inbox() <- hub.ListLobbies{Reply: refs}

		projections := []LobbyProjection{}
		for _, ref := range <-refs {
			reply := make(chan lobby.View, 1)
			ref.Lobby.Inbox() <- lobby.GetState{Reply: reply}
			select {
			case view := <-reply:
				projections = append(projections, LobbyProjection{
					State:   view.State,
					Phase:   engine.DerivePhase(view.State),
					Version: view.Version,
					Clients: view.NumClients,
				})
			case <-time.After(stateTimeout):
				// Lobby shut down mid-enumeration; skip it.
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(projections)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
