package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"food-market/internal/model"
	"food-market/internal/realtime"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrJoinRejected is returned when the server refuses to add the connection to the room.
var ErrJoinRejected = errors.New("join rejected")

// EventHandler receives the push stream of one store.
type EventHandler interface {
	// OnConnect runs after every successful join, before events of that
	// connection are delivered. It is where a consumer catches up on anything
	// missed while disconnected.
	OnConnect(ctx context.Context) error

	// OnEvent receives one order event.
	OnEvent(event model.OrderEvent)
}

// TokenSource hands out channel tokens.
type TokenSource interface {
	ChannelToken(ctx context.Context, storeID string) (*model.ChannelTokenResponse, error)
}

// SubscriberConfig configures a store subscription.
type SubscriberConfig struct {
	URL              string // websocket endpoint, e.g. ws://localhost:8080/ws
	StoreID          string
	MinBackoff       time.Duration
	MaxBackoff       time.Duration
	HandshakeTimeout time.Duration
}

// Subscriber keeps a websocket joined to one store room, reconnecting with
// exponential backoff.
type Subscriber struct {
	cfg    SubscriberConfig
	tokens TokenSource
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewSubscriber creates a subscriber. tokens may be nil when the server does
// not require channel tokens.
func NewSubscriber(cfg SubscriberConfig, tokens TokenSource, logger zerolog.Logger) *Subscriber {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Subscriber{
		cfg:    cfg,
		tokens: tokens,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		logger: logger.With().Str("component", "subscriber").Str("store_id", cfg.StoreID).Logger(),
	}
}

// Run delivers events to h until ctx is cancelled. A cancelled context is not an error.
func (s *Subscriber) Run(ctx context.Context, h EventHandler) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.MinBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		joined, err := s.session(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		if joined {
			b.Reset()
		}

		wait := b.NextBackOff()
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("subscription lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session runs one connection. It reports whether the join succeeded.
func (s *Subscriber) session(ctx context.Context, h EventHandler) (bool, error) {
	join := realtime.ClientMessage{Type: realtime.MessageJoin, StoreID: s.cfg.StoreID}
	if s.tokens != nil {
		token, err := s.tokens.ChannelToken(ctx, s.cfg.StoreID)
		if err != nil {
			return false, fmt.Errorf("failed to get channel token: %w", err)
		}
		join.Token = token.Token
	}

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	// Unblock reads when the caller goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(join); err != nil {
		return false, fmt.Errorf("failed to send join: %w", err)
	}

	var reply realtime.ServerMessage
	if err := conn.ReadJSON(&reply); err != nil {
		return false, fmt.Errorf("failed to read join reply: %w", err)
	}
	if reply.Event != realtime.EventJoined {
		return false, fmt.Errorf("%w: %s", ErrJoinRejected, reply.Error)
	}
	s.logger.Info().Msg("joined store channel")

	if err := h.OnConnect(ctx); err != nil {
		s.logger.Error().Err(err).Msg("catch-up after connect failed")
	}

	for {
		var msg realtime.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return true, err
		}
		switch {
		case msg.IsOrderEvent():
			h.OnEvent(msg.OrderEvent())
		case msg.Event == realtime.EventError:
			s.logger.Warn().Str("error", msg.Error).Msg("server reported an error")
		}
	}
}
