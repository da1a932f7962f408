package realtime

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const channelAudience = "store-channel"

var (
	ErrInvalidToken  = errors.New("invalid channel token")
	ErrExpiredToken  = errors.New("channel token has expired")
	ErrStoreMismatch = errors.New("channel token was issued for another store")
)

// ChannelClaims grant access to one store's room.
type ChannelClaims struct {
	StoreID string `json:"store_id"`
	jwt.RegisteredClaims
}

// ChannelTokens issues and checks short-lived HS256 tokens for joining rooms.
type ChannelTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewChannelTokens creates a token service signing with secret.
func NewChannelTokens(secret string, ttl time.Duration) *ChannelTokens {
	return &ChannelTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a token for storeID and returns it with its expiry.
func (t *ChannelTokens) Issue(storeID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := ChannelClaims{
		StoreID: storeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{channelAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   storeID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks the token's signature, expiry and store.
func (t *ChannelTokens) Validate(tokenString, storeID string) error {
	token, err := jwt.ParseWithClaims(tokenString, &ChannelClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithAudience(channelAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(*ChannelClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}
	if claims.StoreID != storeID {
		return ErrStoreMismatch
	}
	return nil
}
