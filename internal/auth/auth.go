// Package auth implements Identity & Auth (component A): opaque player IDs
// and HMAC tokens, verified on every room join.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"hexterritory/internal/apperr"
	"hexterritory/internal/data"
)

// Service issues and verifies player identity tokens.
type Service struct {
	secret []byte
	colors []string
	store  *data.Players
}

// New builds an auth Service bound to a process-wide HMAC secret.
// Rotating secret invalidates every outstanding token, by design.
func New(secret string, colors []string, store *data.Players) *Service {
	return &Service{secret: []byte(secret), colors: colors, store: store}
}

// Registration is the result of Register.
type Registration struct {
	PlayerID string
	Token    string
	Username string
	Color    string
}

// Register returns the existing player's record (with a freshly computed
// token) if username already exists case-insensitively, else creates a new
// player with a randomly chosen color from the configured palette.
func (s *Service) Register(ctx context.Context, username string) (*Registration, error) {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < 2 || len(trimmed) > 24 {
		return nil, apperr.New(apperr.KindBadInput, "username must be 2-24 characters")
	}

	existing, err := s.store.GetByUsername(ctx, trimmed)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Wrap(apperr.KindUnavailable, "lookup failed", err)
	}
	if existing != nil {
		return &Registration{
			PlayerID: existing.ID,
			Token:    s.tokenFor(existing.ID),
			Username: existing.Username,
			Color:    existing.Color,
		}, nil
	}

	playerID := uuid.NewString()
	color := s.colors[rand.Intn(len(s.colors))]
	now := time.Now()

	player := &data.Player{
		ID:        playerID,
		Username:  trimmed,
		Color:     color,
		CreatedAt: now,
		LastSeen:  now,
	}

	if err := s.store.Create(ctx, player); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "create failed", err)
	}

	return &Registration{
		PlayerID: playerID,
		Token:    s.tokenFor(playerID),
		Username: trimmed,
		Color:    color,
	}, nil
}

// Verify does a constant-time comparison of HMAC(secret, playerID) against token.
func (s *Service) Verify(playerID, token string) bool {
	want := s.tokenFor(playerID)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

func (s *Service) tokenFor(playerID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(playerID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ChangeColor validates the hex color format and applies it through the data layer.
func (s *Service) ChangeColor(ctx context.Context, playerID, token, color string) error {
	if !s.Verify(playerID, token) {
		return apperr.New(apperr.KindAuthFailed, "invalid token")
	}
	if !isHexColor(color) {
		return apperr.New(apperr.KindBadInput, "color must match #RRGGBB")
	}
	if err := s.store.SetColor(ctx, playerID, color); err != nil {
		return err
	}
	return nil
}

func isHexColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		isHexDigit := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHexDigit {
			return false
		}
	}
	return true
}
