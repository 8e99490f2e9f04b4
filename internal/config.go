package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host     string `env:"HOST,default=localhost" validate:"required"`
	Port     int    `env:"PORT,default=8080" validate:"min=1,max=65535"`
	GrpcPort int    `env:"GRPC_PORT,default=8090" validate:"min=1,max=65535,nefield=Port"`
	// DebugPort serves the archive inspector when LOG_LEVEL is DEBUG.
	DebugPort int    `env:"DEBUG_PORT,default=8081" validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL,required=true" validate:"required"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true" validate:"min=1"`
	SinkBufferSize       int           `env:"SINK_BUFFER_SIZE,required=true" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true" validate:"gt=0"`
	OverflowPolicy       string        `env:"OVERFLOW_POLICY,default=drop-oldest" validate:"oneof=drop-oldest disconnect"`
	EventLogRetention    int           `env:"EVENT_LOG_RETENTION,default=0" validate:"min=0"`
	MaxIdentityLength    int           `env:"MAX_IDENTITY_LENGTH,default=64" validate:"min=1"`
	MaxTextLength        int           `env:"MAX_TEXT_LENGTH,default=4096" validate:"min=0"`

	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT,default=0s" validate:"min=0"`
	ReapInterval    time.Duration `env:"REAP_INTERVAL,default=30s" validate:"gt=0"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=0s" validate:"min=0"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=8192" validate:"min=1"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true" validate:"gt=0"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=0s" validate:"min=0"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*" validate:"required"`
	ArchiveLimit    int    `env:"ARCHIVE_LIMIT,default=500" validate:"min=0"`
	// ArchiveTTL bounds how long archived events are kept, 0 keeps them forever.
	ArchiveTTL time.Duration `env:"ARCHIVE_TTL,default=24h" validate:"min=0"`
}

// LoadConfig reads the process environment into a validated Config.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// ExtraWords splits CENSORED_WORDS on commas, blanks are skipped.
func (c Config) ExtraWords() []string {
	var words []string
	for _, word := range strings.Split(c.CensoredWords, ",") {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
