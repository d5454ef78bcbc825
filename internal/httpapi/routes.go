package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mapveto/mapban-backend/internal/hub"
	"github.com/mapveto/mapban-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Post("/lobbies", CreateLobby(h, log))
	r.Get("/admin/lobbies", AdminLobbies(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.LobbyHandler(h, log))
	r.Get("/ws/admin", ws.AdminHandler(h, log))

	// The rendering frontend lives on its own origin.
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}
