package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

// HistoryStore keeps a capped, newest-first transcript per patient in Redis.
type HistoryStore struct {
	client *redis.Client
	size   int64
	ttl    time.Duration
}

func NewHistoryStore(client *redis.Client, size int, ttl time.Duration) *HistoryStore {
	if size <= 0 {
		size = 50
	}
	return &HistoryStore{client: client, size: int64(size), ttl: ttl}
}

func historyKey(patientID uint) string {
	return fmt.Sprintf("chat:history:%d", patientID)
}

func (h *HistoryStore) Append(ctx context.Context, patientID uint, turn models.ChatTurn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	key := historyKey(patientID)
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, h.size-1)
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit turns, newest first.
func (h *HistoryStore) Recent(ctx context.Context, patientID uint, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 || int64(limit) > h.size {
		limit = int(h.size)
	}
	raw, err := h.client.LRange(ctx, historyKey(patientID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]models.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (h *HistoryStore) Clear(ctx context.Context, patientID uint) error {
	return h.client.Del(ctx, historyKey(patientID)).Err()
}
