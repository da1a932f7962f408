package handler

import (
	"net/http"
	"strconv"

	"food-market/internal/model"
	"food-market/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders?storeId=&customerId=&status=&limit=&offset= requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.list(w, r, query.Get("storeId"), query.Get("status"))
}

// ListByStatus handles GET /api/orders/status/{status}?storeId= requests.
func (h *OrderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("storeId"), r.PathValue("status"))
}

// ListByStore handles GET /api/orders/store/{storeId}?status= requests.
func (h *OrderHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.PathValue("storeId"), r.URL.Query().Get("status"))
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, storeID, status string) {
	query := r.URL.Query()
	filter := model.OrderFilter{
		StoreID:    storeID,
		CustomerID: query.Get("customerId"),
		Status:     model.Status(status),
	}

	var details []model.FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, model.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = n
	}
	if len(details) > 0 {
		writeDomainError(w, r, model.NewValidationError(details...), h.logger)
		return
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles PATCH /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	target, err := model.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(w, r, model.NewValidationError(model.FieldError{
			Field:   "status",
			Message: "must be one of pending, preparing, ready, completed, cancelled",
		}), h.logger)
		return
	}

	order, err := h.service.TransitionStatus(r.Context(), orderID, target, req.Version)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, model.NewValidationError(model.FieldError{Field: "id", Message: "must be a UUID"}), h.logger)
		return uuid.Nil, false
	}
	return orderID, true
}
