package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
)

// ConnectionStatus: last connection.update seen, as exposed by /status
type ConnectionStatus struct {
	Connection string    `json:"connection"`
	StatusCode int       `json:"statusCode,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	SelfJID    string    `json:"selfJid,omitempty"`
	Registered bool      `json:"registered"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Open reports whether the socket is connected.
func (s *ConnectionStatus) Open() bool {
	return s != nil && s.Connection == domain.ConnectionOpen
}

// Session keeps the gateway session state (QR, pairing code, connection) in Valkey so the HTTP
// API and botctl can read it from any process.
type Session struct {
	cache  *cache.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewSession creates a Session.
func NewSession(cacheSvc *cache.Service, logger *slog.Logger) *Session {
	return &Session{cache: cacheSvc, logger: logger, now: time.Now}
}

func sessionKey(field string) string {
	return constants.StoreKeys.Session + ":" + field
}

// SetQR stores the latest login QR string.
func (s *Session) SetQR(ctx context.Context, qr string) error {
	if qr == "" {
		_, err := s.cache.Del(ctx, sessionKey("qr"))
		return err
	}
	return s.cache.SetString(ctx, sessionKey("qr"), qr, constants.CacheTTL.PendingQRCode)
}

// QR returns the pending login QR string, if any.
func (s *Session) QR(ctx context.Context) (string, bool, error) {
	return s.cache.GetString(ctx, sessionKey("qr"))
}

// SetPairingCode stores the latest phone pairing code.
func (s *Session) SetPairingCode(ctx context.Context, code string) error {
	return s.cache.SetString(ctx, sessionKey("pairing"), code, constants.CacheTTL.PairingCode)
}

// PairingCode returns the pending pairing code, if any.
func (s *Session) PairingCode(ctx context.Context) (string, bool, error) {
	return s.cache.GetString(ctx, sessionKey("pairing"))
}

// SetConnection records update. An open connection clears the pending QR and pairing code.
// Updates without a connection field (QR refreshes) keep the previous state.
func (s *Session) SetConnection(ctx context.Context, update domain.ConnectionUpdate) error {
	if update.Connection == "" {
		return nil
	}
	status := ConnectionStatus{
		Connection: update.Connection,
		StatusCode: update.StatusCode,
		Reason:     update.Reason,
		SelfJID:    update.SelfJID,
		Registered: update.Registered,
		UpdatedAt:  s.now().UTC(),
	}
	if status.SelfJID == "" {
		if prev, err := s.Connection(ctx); err == nil && prev != nil {
			status.SelfJID = prev.SelfJID
		}
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode connection status: %w", err)
	}
	if err := s.cache.SetString(ctx, sessionKey("connection"), string(raw), constants.CacheTTL.ConnectionInfo); err != nil {
		return err
	}

	if status.Open() {
		if _, err := s.cache.Del(ctx, sessionKey("qr"), sessionKey("pairing")); err != nil {
			s.logger.Warn("SESSION_CLEAR_FAILED", slog.Any("error", err))
		}
	}
	return nil
}

// Connection returns the last recorded status, or nil when none is known.
func (s *Session) Connection(ctx context.Context) (*ConnectionStatus, error) {
	raw, found, err := s.cache.GetString(ctx, sessionKey("connection"))
	if err != nil || !found {
		return nil, err
	}
	var status ConnectionStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("decode connection status: %w", err)
	}
	return &status, nil
}
