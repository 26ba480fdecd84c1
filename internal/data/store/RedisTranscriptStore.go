package store

import (
	"context"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/data/redisStore"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

// RedisTranscriptStore keeps the rolling final-transcript lines of each live
// stream in a redis list, trimmed by TTL. It backs the transcript read API;
// live fan-out never reads from it.
type RedisTranscriptStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisTranscriptStore(ctx context.Context) *RedisTranscriptStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisTranscriptStore)
	if inner == nil {
		return nil
	}
	return &RedisTranscriptStore{
		store:  inner,
		logger: logger_i.NewLogger("TranscriptStore"),
	}
}

func transcriptKey(streamId string) string {
	return "stream:transcript:" + streamId
}

func (s *RedisTranscriptStore) AppendLine(ctx context.Context, streamId string, text string) error {
	key := transcriptKey(streamId)
	if err := s.store.ListPush(ctx, key, text); err != nil {
		return err
	}
	//refresh the TTL on every append so an active stream never expires mid-flight
	if err := s.store.Expire(ctx, key, config.RedisTranscriptTTL); err != nil {
		s.logger.Warn("failed to set transcript TTL", "streamId", streamId, "error", err)
	}
	s.logger.Debug("appended transcript line", "streamId", streamId)
	return nil
}

func (s *RedisTranscriptStore) GetLines(ctx context.Context, streamId string) ([]string, error) {
	return s.store.ListGetAll(ctx, transcriptKey(streamId))
}

func TestTranscriptStore(store *redisStore.Store) *RedisTranscriptStore {
	return &RedisTranscriptStore{
		store:  store,
		logger: logger_i.NewLogger("test transcript store"),
	}
}
