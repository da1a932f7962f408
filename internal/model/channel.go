package model

import "time"

// ChannelTokenResponse carries a token granting access to one store's channel.
type ChannelTokenResponse struct {
	Token     string    `json:"token"`
	StoreID   string    `json:"storeId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
