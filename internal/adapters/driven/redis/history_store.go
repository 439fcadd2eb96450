package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChatHistoryStore = (*HistoryStore)(nil)

const (
	historyKeyPrefix = "neoosi:chat:"

	// DefaultHistoryCap bounds the turns kept per user and category
	DefaultHistoryCap = 500
)

// HistoryStore implements driven.ChatHistoryStore with one Redis list per
// user and category, oldest turn at the head.
type HistoryStore struct {
	client *redis.Client
	cap    int64
	ttl    time.Duration
}

// NewHistoryStore creates a history store. Lists are trimmed to maxTurns
// (DefaultHistoryCap when <= 0) and expire ttl after the last write
// (never when ttl is 0).
func NewHistoryStore(client *redis.Client, maxTurns int, ttl time.Duration) *HistoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryCap
	}
	return &HistoryStore{client: client, cap: int64(maxTurns), ttl: ttl}
}

func historyKey(userID string, category domain.ChatCategory) string {
	return historyKeyPrefix + userID + ":" + string(category)
}

// Append stores a turn at the tail of the list
func (s *HistoryStore) Append(ctx context.Context, turn *domain.ChatTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := historyKey(turn.UserID, turn.Category)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -s.cap, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// List returns the last limit turns, oldest first
func (s *HistoryStore) List(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	items, err := s.client.LRange(ctx, historyKey(userID, category), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	turns := make([]*domain.ChatTurn, 0, len(items))
	for _, item := range items {
		var turn domain.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	return turns, nil
}

// Ping checks if Redis is reachable
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
