package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("LMS_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LMS_JWT_SECRET", "secret")
	t.Setenv("LMS_VECTOR_SEARCH_THRESHOLD", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "LMS API", cfg.AppName)
	require.Equal(t, time.Hour, cfg.ChatbotCacheTTL)
	require.Equal(t, 5, cfg.VectorSearchLimit)
	require.InDelta(t, 0.75, cfg.VectorSearchThreshold, 1e-9)
	require.Equal(t, "@every 1m", cfg.PublishScheduleSpec)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Empty(t, cfg.ChatbotWarmQueries)
	require.Equal(t, 45*time.Second, cfg.ContentTreeCacheTTL)
}

func TestLoadSplitsWarmQueries(t *testing.T) {
	t.Setenv("LMS_JWT_SECRET", "secret")
	t.Setenv("LMS_CHATBOT_WARM_QUERIES", "what is a goroutine, ,how do channels work")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"what is a goroutine", "how do channels work"}, cfg.ChatbotWarmQueries)
}

func TestLoadRejectsInvalidCacheTTL(t *testing.T) {
	t.Setenv("LMS_JWT_SECRET", "secret")
	t.Setenv("LMS_CHATBOT_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidTreeCacheTTL(t *testing.T) {
	t.Setenv("LMS_JWT_SECRET", "secret")
	t.Setenv("LMS_CONTENT_TREE_CACHE_TTL", "-")

	_, err := Load()
	require.Error(t, err)
}
