package server

import (
	"letsblog/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebsocketHandler streams store snapshots. The current snapshot is sent on
// connect, then one event per successful mutating call.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := s.shutdownCtx
		var username string
		if session := s.store.Session(ctx); session != nil {
			username = session.Username
		}

		client, err := s.hub.Register(conn, username)
		if err != nil {
			observability.Logger.Warn("websocket register failed", "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		snap, err := s.store.Snapshot(ctx, "")
		if err == nil {
			if data, err := s.publisher.Encode(snap); err == nil {
				client.TrySend(data)
			}
		}

		go client.WritePump()
		client.ReadPump()
	})
}
