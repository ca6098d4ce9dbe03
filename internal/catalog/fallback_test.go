package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

func TestFallbackLoader(t *testing.T) {
	primaryErr := errors.New("primary down")
	fallbackErr := errors.New("fallback broken")
	static := []models.Business{{ID: "s", Name: "Static"}}
	live := []models.Business{{ID: "p", Name: "Primary"}}

	tests := []struct {
		name          string
		primary       *countingLoader
		fallback      *countingLoader
		expectedIDs   []string
		expectedErr   error
		fallbackCalls int
	}{
		{
			name:          "primary wins",
			primary:       &countingLoader{businesses: live},
			fallback:      &countingLoader{businesses: static},
			expectedIDs:   []string{"p"},
			fallbackCalls: 0,
		},
		{
			name:          "primary error",
			primary:       &countingLoader{err: primaryErr},
			fallback:      &countingLoader{businesses: static},
			expectedIDs:   []string{"s"},
			fallbackCalls: 1,
		},
		{
			name:          "primary empty",
			primary:       &countingLoader{businesses: []models.Business{}},
			fallback:      &countingLoader{businesses: static},
			expectedIDs:   []string{"s"},
			fallbackCalls: 1,
		},
		{
			name:          "both fail returns primary error",
			primary:       &countingLoader{err: primaryErr},
			fallback:      &countingLoader{err: fallbackErr},
			expectedErr:   primaryErr,
			fallbackCalls: 1,
		},
		{
			name:          "empty primary and failing fallback",
			primary:       &countingLoader{},
			fallback:      &countingLoader{err: fallbackErr},
			expectedErr:   fallbackErr,
			fallbackCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFallbackLoader(tt.primary, tt.fallback, logger.NewTestLogger(t))

			businesses, err := l.Load(context.Background())
			assert.Equal(t, tt.fallbackCalls, tt.fallback.calls)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)

			ids := make([]string, len(businesses))
			for i, b := range businesses {
				ids[i] = b.ID
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestFallbackLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fallback := &countingLoader{businesses: []models.Business{{ID: "s"}}}
	l := NewFallbackLoader(&countingLoader{err: context.Canceled}, fallback, logger.NewNoOpLogger())

	_, err := l.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.calls)
}

func TestFallbackLoader_Name(t *testing.T) {
	l := NewFallbackLoader(NewStaticLoader(""), &countingLoader{}, logger.NewNoOpLogger())
	assert.Equal(t, "static", SourceName(l))
}
