package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/lyfeumbria/manager/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logging.Configure(&buf, "PROD", "")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Str("user_id", "u1").Msg("session started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "session started", line["message"])
	require.Equal(t, "u1", line["user_id"])
}

func TestConfigure_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	logging.Configure(&buf, "PROD", "warn")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}
