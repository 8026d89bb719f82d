// Package store persists typed records in Valkey using the {id, type, data, createdAt, expiresAt}
// envelope, and exposes the quiz leaderboard sorted set.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// RecordType tags the payload kind of a stored record.
type RecordType string

// Record types.
const (
	TypeQuiz      RecordType = "quiz"
	TypeMeme      RecordType = "meme"
	TypeUserScore RecordType = "user_score"
	TypeCustom    RecordType = "custom"
	TypeSettings  RecordType = "settings"
	TypeRef       RecordType = "ref"
)

// StoredItem: envelope written for every record (times in unix milliseconds)
type StoredItem struct {
	ID        string          `json:"id"`
	Type      RecordType      `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

// Expired reports whether the envelope is past its client-side expiry.
func (i *StoredItem) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.UnixMilli() > *i.ExpiresAt
}

// UserScore is the record kept under user:<id>:score.
type UserScore struct {
	UserID    string  `json:"userId"`
	Score     float64 `json:"score"`
	QuizID    string  `json:"quizId,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Store: record persistence on top of the Valkey cache service
type Store struct {
	cache  *cache.Service
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Store.
func New(cacheSvc *cache.Service, logger *slog.Logger) *Store {
	return &Store{
		cache:  cacheSvc,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) envelope(key string, typ RecordType, data any, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", errors.NewCacheError("marshal", key, err)
	}
	now := s.now()
	item := StoredItem{
		ID:        key,
		Type:      typ,
		Data:      raw,
		CreatedAt: now.UnixMilli(),
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl).UnixMilli()
		item.ExpiresAt = &expiresAt
	}
	encoded, err := json.Marshal(item)
	if err != nil {
		return "", errors.NewCacheError("marshal", key, err)
	}
	return string(encoded), nil
}

// Save writes data under key; ttl <= 0 keeps it until deleted.
func (s *Store) Save(ctx context.Context, key string, typ RecordType, data any, ttl time.Duration) error {
	encoded, err := s.envelope(key, typ, data, ttl)
	if err != nil {
		return err
	}
	return s.cache.SetString(ctx, key, encoded, ttl)
}

// SaveIfAbsent writes data only when key does not exist yet (SET NX) and reports whether it did.
func (s *Store) SaveIfAbsent(ctx context.Context, key string, typ RecordType, data any, ttl time.Duration) (bool, error) {
	encoded, err := s.envelope(key, typ, data, ttl)
	if err != nil {
		return false, err
	}
	return s.cache.SetNX(ctx, key, encoded, ttl)
}

// GetItem loads the envelope under key. Missing or expired records return errors.ErrNotFound;
// an expired record still present server-side is deleted.
func (s *Store) GetItem(ctx context.Context, key string) (*StoredItem, error) {
	raw, found, err := s.cache.GetString(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrNotFound
	}

	var item StoredItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, errors.NewCacheError("unmarshal", key, err)
	}

	if item.Expired(s.now()) {
		if _, err := s.cache.Del(ctx, key); err != nil {
			s.logger.Warn("STORE_EXPIRED_DELETE_FAILED", slog.String("key", key), slog.Any("error", err))
		}
		return nil, errors.ErrNotFound
	}
	return &item, nil
}

// Get decodes the record data under key into dest and reports whether it was found.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	item, err := s.GetItem(ctx, key)
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if dest != nil {
		if err := json.Unmarshal(item.Data, dest); err != nil {
			return false, errors.NewCacheError("unmarshal", key, err)
		}
	}
	return true, nil
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	_, err := s.cache.Del(ctx, keys...)
	return err
}

// Exists reports whether a non-expired record is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	found, err := s.Get(ctx, key, nil)
	return found, err
}

// ScanPrefix lists keys starting with prefix, at most limit (<= 0 uses the default limit).
func (s *Store) ScanPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = constants.StoreConfig.DefaultLimit
	}
	return s.cache.Scan(ctx, escapeGlob(prefix)+"*", limit)
}

// AddUserPoints credits points to userID on the global leaderboard and mirrors the total
// into the user:<id>:score record.
func (s *Store) AddUserPoints(ctx context.Context, userID string, points float64, quizID string) (float64, error) {
	total, err := s.cache.ZIncrBy(ctx, constants.StoreKeys.Leaderboard, userID, points)
	if err != nil {
		return 0, err
	}
	record := UserScore{UserID: userID, Score: total, QuizID: quizID, Timestamp: s.now().UnixMilli()}
	if err := s.Save(ctx, userScoreKey(userID), TypeUserScore, record, 0); err != nil {
		s.logger.Warn("STORE_USER_SCORE_SAVE_FAILED", slog.String("user", userID), slog.Any("error", err))
	}
	return total, nil
}

// Leaderboard returns the top limit players by descending score.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]domain.ScoreEntry, error) {
	scores, err := s.cache.ZRevRangeWithScores(ctx, constants.StoreKeys.Leaderboard, int64(limit))
	if err != nil {
		return nil, err
	}
	entries := make([]domain.ScoreEntry, 0, len(scores))
	for _, score := range scores {
		entries = append(entries, domain.ScoreEntry{Member: score.Member, Score: score.Score})
	}
	return entries, nil
}

// Ping reports store availability.
func (s *Store) Ping(ctx context.Context) bool {
	return s.cache.IsConnected(ctx)
}

// Key helpers for the campaign layout.

// PointerKey names the pending-campaign pointer of kind.
func PointerKey(kind string) string {
	return fmt.Sprintf(constants.StoreKeys.CampaignPointer, kind)
}

// MessageRefKey names the per-target message reference of a campaign instance.
func MessageRefKey(instanceID, targetID string) string {
	return fmt.Sprintf(constants.StoreKeys.MessageRef, instanceID, targetID)
}

// MessageRefPrefix is the prefix shared by all message references of an instance.
func MessageRefPrefix(instanceID string) string {
	return MessageRefKey(instanceID, "")
}

// QuizKey names a stored quiz.
func QuizKey(id string) string {
	return fmt.Sprintf(constants.StoreKeys.Quiz, id)
}

// PollIndexKey maps a poll message id to its quiz.
func PollIndexKey(messageID string) string {
	return fmt.Sprintf(constants.StoreKeys.PollIndex, messageID)
}

// VoteKey guards one scored vote per voter and quiz.
func VoteKey(quizID, voter string) string {
	return fmt.Sprintf(constants.StoreKeys.VoteDedup, quizID, voter)
}

func userScoreKey(userID string) string {
	return "user:" + userID + ":score"
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
