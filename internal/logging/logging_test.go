package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Level(t *testing.T) {
	var out bytes.Buffer
	logger, err := Setup(Options{Level: "warn", Console: &out})
	require.NoError(t, err)

	logger.Info().Msg("quiet")
	logger.Warn().Str("model_type", "vit_b").Msg("loud")

	s := out.String()
	assert.NotContains(t, s, "quiet")
	assert.Contains(t, s, "loud")
	assert.Contains(t, s, "model_type=")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestSetup_DefaultLevel(t *testing.T) {
	logger, err := Setup(Options{Console: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Options{Level: "chatty", Console: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestRotatedName(t *testing.T) {
	assert.Equal(t, "logs/server_%Y%m%d", RotatedName("logs/server"))
}
