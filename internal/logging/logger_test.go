package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/player"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"trace", zerolog.TraceLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = &buf
	cfg.Level = zerolog.WarnLevel

	log := New(cfg)
	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	ctx := WithContext(context.Background(), log)
	ctx = WithComponent(ctx, "session")
	ctx = WithMedia(ctx, "clip.mp4")
	l := FromContext(ctx)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "clip.mp4", entry["media"])
}

func TestFromContextWithoutLogger(t *testing.T) {
	l := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}

func TestWithSessionStats(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), zerolog.New(&buf))

	stats := player.SessionStats{Hardware: false, FellBack: true}
	stats.Presenter.FramesShown = 120
	stats.Queue.Dropped = 3
	stats.Producer.DecodeErrors = 1

	l := FromContext(WithSessionStats(ctx, stats))
	l.Info().Msg("playback finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, false, entry["hardware"])
	assert.Equal(t, true, entry["fallback"])
	assert.Equal(t, float64(120), entry["frames"])
	assert.Equal(t, float64(3), entry["dropped"])
	assert.Equal(t, float64(1), entry["decode_errors"])
}
