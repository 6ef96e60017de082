package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CloseJobNotFound is the WebSocket close code sent for unknown jobs.
const CloseJobNotFound = 4004

const writeWait = 10 * time.Second

// handleWS streams a job's events until the complete sentinel, then closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("server: websocket upgrade", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	log := zap.L().With(zap.String("job_id", jobID))

	sub, err := s.jobs.Events(jobID)
	if err != nil {
		closeWith(conn, CloseJobNotFound, "Job not found")
		return
	}

	// The read loop only exists to notice the client going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		ev, err := sub.Next(ctx)
		if errors.Is(err, io.EOF) {
			closeWith(conn, websocket.CloseNormalClosure, "")
			return
		}
		if err != nil {
			log.Debug("server: websocket client disconnected", zap.Error(err))
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug("server: websocket write", zap.Error(err))
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
