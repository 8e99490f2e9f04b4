package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HUB_HTTP_ADDR points at a running hub, e.g. localhost:8080. The suite is skipped when empty.
	HTTPAddr string `envconfig:"HUB_HTTP_ADDR"`
	GrpcAddr string `envconfig:"HUB_GRPC_ADDR" default:"localhost:8090"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
