package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("CONNECTION_BUFFER_SIZE", "64")
	t.Setenv("SINK_BUFFER_SIZE", "256")
	t.Setenv("SINK_TIMEOUT", "2s")
	t.Setenv("RESTART_INTERVAL", "500ms")
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal(8090, config.GrpcPort)
	req.Equal("drop-oldest", config.OverflowPolicy)
	req.Equal(60*time.Second, config.PongWait)
	req.Equal(2*time.Second, config.SinkTimeout)
	req.Equal("*", config.CharReplacement)
	req.Equal(24*time.Hour, config.ArchiveTTL)
}

func TestLoadConfig_Missing_Required(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("CONNECTION_BUFFER_SIZE", "")

	_, err := LoadConfig()

	req.Error(err)
}

func TestLoadConfig_Rejects_Unknown_Policy(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("OVERFLOW_POLICY", "block")

	_, err := LoadConfig()

	req.ErrorContains(err, "OverflowPolicy")
}

func TestLoadConfig_Rejects_Same_Ports(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GRPC_PORT", "9000")

	_, err := LoadConfig()

	req.ErrorContains(err, "GrpcPort")
}

func TestConfig_ExtraWords(t *testing.T) {
	req := require.New(t)

	config := Config{CensoredWords: " badger, ,snake ,"}

	req.Equal([]string{"badger", "snake"}, config.ExtraWords())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("##")
	req.Error(err)
}
