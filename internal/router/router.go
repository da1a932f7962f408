package router

import (
	"net/http"

	"food-market/internal/handler"
	"food-market/internal/metrics"
	"food-market/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Orders    *handler.OrderHandler
	Channels  *handler.ChannelHandler
	Health    *handler.HealthHandler
	Websocket http.Handler
	Metrics   *metrics.Registry
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated endpoints
	mux.HandleFunc("GET /health", h.Health.Check)
	mux.Handle("GET /metrics", h.Metrics.Handler())
	mux.Handle("GET /ws", h.Websocket)

	// Orders
	mux.HandleFunc("POST /api/orders", h.Orders.Create)
	mux.HandleFunc("GET /api/orders", h.Orders.List)
	mux.HandleFunc("GET /api/orders/{id}", h.Orders.GetByID)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.Orders.UpdateStatus)
	mux.HandleFunc("GET /api/orders/status/{status}", h.Orders.ListByStatus)
	mux.HandleFunc("GET /api/orders/store/{storeId}", h.Orders.ListByStore)

	// Store channels
	mux.HandleFunc("POST /api/stores/{storeId}/channel-token", h.Channels.IssueToken)

	// Apply middleware in order: Recovery -> CorrelationID -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger, h.Metrics)(handler)
	handler = middleware.CorrelationID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
