package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"magick-workers/internal/models"
)

// ModeStore holds the process-wide monetization mode. Callers read it once
// per recommendation and pass it in the Request, so a change applies from the
// next call on.
type ModeStore interface {
	Get(ctx context.Context) (models.MonetizationMode, error)
	// Set stores mode and returns the mode it replaced.
	Set(ctx context.Context, mode models.MonetizationMode) (models.MonetizationMode, error)
}

// ErrInvalidMode is returned for anything other than affiliate or sponsor.
var ErrInvalidMode = errors.New("monetization mode must be affiliate or sponsor")

// ParseMode validates a mode string.
func ParseMode(s string) (models.MonetizationMode, error) {
	m := models.MonetizationMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// StaticModeStore keeps the mode in process memory.
type StaticModeStore struct {
	mu   sync.RWMutex
	mode models.MonetizationMode
}

func NewStaticModeStore(initial models.MonetizationMode) *StaticModeStore {
	if !initial.Valid() {
		initial = models.MonetizationAffiliate
	}
	return &StaticModeStore{mode: initial}
}

func (s *StaticModeStore) Get(_ context.Context) (models.MonetizationMode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, nil
}

func (s *StaticModeStore) Set(_ context.Context, mode models.MonetizationMode) (models.MonetizationMode, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.mode
	s.mode = mode
	return prev, nil
}

// RedisModeStore shares the mode between API and worker replicas.
type RedisModeStore struct {
	client   redis.Cmdable
	key      string
	fallback models.MonetizationMode
}

// NewRedisModeStore returns fallback until a mode has been stored.
func NewRedisModeStore(client redis.Cmdable, key string, fallback models.MonetizationMode) *RedisModeStore {
	if !fallback.Valid() {
		fallback = models.MonetizationAffiliate
	}
	return &RedisModeStore{client: client, key: key, fallback: fallback}
}

func (s *RedisModeStore) Get(ctx context.Context) (models.MonetizationMode, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return s.fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read monetization mode: %w", err)
	}
	return s.decode(val), nil
}

func (s *RedisModeStore) Set(ctx context.Context, mode models.MonetizationMode) (models.MonetizationMode, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	prev, err := s.client.GetSet(ctx, s.key, string(mode)).Result()
	if errors.Is(err, redis.Nil) {
		return s.fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("write monetization mode: %w", err)
	}
	return s.decode(prev), nil
}

// decode ignores garbage written by other tools.
func (s *RedisModeStore) decode(val string) models.MonetizationMode {
	m := models.MonetizationMode(val)
	if !m.Valid() {
		return s.fallback
	}
	return m
}
