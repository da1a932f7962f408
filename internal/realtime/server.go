package realtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TokenValidator checks that a token grants access to a store's room.
type TokenValidator interface {
	Validate(token, storeID string) error
}

// ServerConfig tunes websocket connections.
type ServerConfig struct {
	WriteTimeout    time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
	TokenRequired   bool
}

// Server upgrades HTTP requests to websocket subscribers of the hub.
type Server struct {
	hub      *Hub
	tokens   TokenValidator
	cfg      ServerConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates the websocket endpoint handler.
func NewServer(hub *Hub, tokens TokenValidator, cfg ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		hub:    hub,
		tokens: tokens,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browsers on other origins are allowed, matching the CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	sub := s.hub.Register()
	logger := s.logger.With().Str("subscriber_id", sub.ID()).Logger()
	logger.Info().Str("remote_addr", r.RemoteAddr).Msg("subscriber connected")

	go s.writeLoop(conn, sub, logger)
	s.readLoop(conn, sub, logger)

	logger.Info().Msg("subscriber disconnected")
}

// readLoop handles join and leave requests until the connection fails, then
// removes the subscriber, which also stops the write loop.
func (s *Server) readLoop(conn *websocket.Conn, sub *Subscriber, logger zerolog.Logger) {
	defer s.hub.Remove(sub)

	conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		s.handleMessage(sub, msg, logger)
	}
}

func (s *Server) handleMessage(sub *Subscriber, msg ClientMessage, logger zerolog.Logger) {
	if msg.StoreID == "" {
		s.hub.Send(sub, ServerMessage{Event: EventError, Error: "storeId is required"})
		return
	}

	switch msg.Type {
	case MessageJoin:
		if s.cfg.TokenRequired {
			if err := s.tokens.Validate(msg.Token, msg.StoreID); err != nil {
				logger.Warn().Err(err).Str("store_id", msg.StoreID).Msg("room join rejected")
				s.hub.Send(sub, ServerMessage{Event: EventError, StoreID: msg.StoreID, Error: joinErrorText(err)})
				return
			}
		}
		s.hub.Join(sub, msg.StoreID)
		s.hub.Send(sub, ServerMessage{Event: EventJoined, StoreID: msg.StoreID})
	case MessageLeave:
		s.hub.Leave(sub, msg.StoreID)
		s.hub.Send(sub, ServerMessage{Event: EventLeft, StoreID: msg.StoreID})
	default:
		s.hub.Send(sub, ServerMessage{Event: EventError, StoreID: msg.StoreID, Error: "unknown message type " + msg.Type})
	}
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "channel token has expired"
	case errors.Is(err, ErrStoreMismatch):
		return "channel token does not grant this store"
	default:
		return "channel token is missing or invalid"
	}
}

// writeLoop is the only writer on conn. It exits once the hub closes the
// subscriber's channel or a write fails.
func (s *Server) writeLoop(conn *websocket.Conn, sub *Subscriber, logger zerolog.Logger) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		}
	}
}
