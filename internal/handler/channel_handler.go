package handler

import (
	"net/http"

	"food-market/internal/model"
	"food-market/internal/service"

	"github.com/rs/zerolog"
)

// ChannelHandler issues store channel tokens.
type ChannelHandler struct {
	service service.ChannelService
	logger  zerolog.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(service service.ChannelService, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		service: service,
		logger:  logger.With().Str("handler", "channel").Logger(),
	}
}

// IssueToken handles POST /api/stores/{storeId}/channel-token requests.
func (h *ChannelHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")

	token, expiresAt, err := h.service.IssueToken(r.Context(), storeID)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, model.ChannelTokenResponse{
		Token:     token,
		StoreID:   storeID,
		ExpiresAt: expiresAt,
	})
}
