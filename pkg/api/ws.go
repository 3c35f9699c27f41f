package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var errUserRequired = errors.New("user_id query parameter is required")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveWS upgrades the connection and bridges it onto the session hub.
// Attaching fires the reconnect hooks, so a user with offline replay
// enabled starts receiving missed notifications immediately.
func serveWS(deps Deps, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, errUserRequired)
			return
		}

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			log.LogAttrs(r.Context(), slog.LevelDebug, "websocket upgrade failed",
				logger.UserID(userID),
				logger.Error(err),
			)
			return
		}

		sess, err := deps.Hub.Attach(userID)
		if err != nil {
			_ = conn.Close()
			return
		}

		go readPump(conn, sess)
		writePump(conn, sess, log)
	}
}

// readPump discards inbound frames; the socket is delivery-only. Its job
// is to notice the peer going away and detach the session.
func readPump(conn *websocket.Conn, sess *channel.Session) {
	defer func() { _ = sess.Close() }()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sess *channel.Session, log *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case content, ok := <-sess.Receive():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(content); err != nil {
				log.LogAttrs(context.Background(), slog.LevelDebug, "websocket write failed",
					logger.UserID(sess.UserID()),
					logger.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
