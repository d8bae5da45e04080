package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// handleWS upgrades the connection and runs the per-session delivery loop:
// wait for the next published point, write it as one text frame, repeat.
// A transport error in either direction ends exactly this session; a session
// that publishes nothing may stay parked in Next indefinitely, holding
// nothing but its cursor.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	log := s.log.WithFields(logrus.Fields{
		"session": uuid.NewString(),
		"peer":    conn.RemoteAddr().String(),
	})
	log.Info("session connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go readPump(conn, cancel)

	cursor := s.bc.Subscribe()
	defer conn.Close()

	for {
		p, err := cursor.Next(ctx)
		if err != nil {
			log.WithError(err).Info("session closing")
			return
		}
		msg, err := json.Marshal(p)
		if err != nil {
			log.WithError(err).Error("encode point")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Info("session write failed")
			return
		}
	}
}

// readPump discards anything the client sends; its only job is to notice the
// peer going away and cancel the delivery loop.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
