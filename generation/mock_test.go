package generation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/generation"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap/zaptest"
)

func TestMockGeneratorAnswersPerCategory(t *testing.T) {
	gen := generation.NewMockGenerator(textutil.NewClassifier(config.DefaultConfig().Keywords()))

	story, err := gen.Generate(context.Background(), "tell me a story")
	require.NoError(t, err)
	greeting, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)

	assert.Contains(t, story, "Once upon a time")
	assert.NotEqual(t, story, greeting)
}

func TestMockGeneratorHonoursContext(t *testing.T) {
	gen := generation.NewMockGenerator(textutil.NewClassifier(config.DefaultConfig().Keywords()))
	gen.Delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPicksBackend(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := config.DefaultConfig()
	cfg.Dev.MockAPI = true
	gen, err := generation.New(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &generation.MockGenerator{}, gen)

	cfg = config.DefaultConfig()
	gen, err = generation.New(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &generation.DeepAIGenerator{}, gen)
}
