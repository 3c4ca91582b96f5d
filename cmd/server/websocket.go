package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/castlebridge/play-server/pkg/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket handles WebSocket connections
func (app *application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader.CheckOrigin = func(r *http.Request) bool {
		if app.Config.FrontendOrigin == "" {
			return true
		}
		return app.Config.FrontendOrigin == r.Header.Get("Origin")
	}

	// Upgrade HTTP connection to WebSocket
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.Logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	identity := identityFrom(r)

	// Create and register connection
	conn := server.NewConnection(ws, app.Hub, identity, app.Logger)
	app.Hub.Register(conn)

	app.Logger.Info("WebSocket connection established",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_id", identity.UserID))

	// Start connection read/write goroutines
	go conn.WritePump()
	go conn.ReadPump()
}

// identityFrom reads the player identity headers, falling back to a
// generated guest identity when they are absent.
func identityFrom(r *http.Request) server.Identity {
	userID := r.Header.Get("X-User-Id")
	username := r.Header.Get("X-Username")

	if userID == "" {
		userID = uuid.NewString()
	}
	if username == "" {
		suffix := userID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		username = "guest-" + suffix
	}

	return server.Identity{UserID: userID, Username: username}
}
