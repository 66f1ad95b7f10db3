// Package handler implements gatewayd's HTTP surface: a health check and
// the websocket changefeed endpoint clients subscribe to. Handlers are
// methods on Server, split into per-endpoint files, all sharing the same
// dependencies.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pmallory/tripsync/internal/gateway"
)

// IdentityVerifier authenticates a bearer token. Defining the interface
// here (in the consumer package) lets handler tests inject a stub without
// minting real tokens. A nil verifier on Server disables authentication
// (dev mode).
type IdentityVerifier interface {
	Verify(token string) (gateway.Identity, error)
}

// Server holds the handler dependencies: the backing changefeed events are
// read from and the verifier for incoming credentials.
type Server struct {
	feed     gateway.Changefeed
	verifier IdentityVerifier
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs the Server. Pass a nil verifier to skip
// authentication in dev mode.
func NewServer(feed gateway.Changefeed, verifier IdentityVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		feed:     feed,
		verifier: verifier,
		log:      log,
		// Origins are enforced by the CORS middleware in front of the
		// router, not per-connection here.
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the chi router for all gatewayd endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/changes", s.handleChanges)
	return r
}
