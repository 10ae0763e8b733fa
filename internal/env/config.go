package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Host     string `env:"ESL_HOST,default=127.0.0.1"`
	Port     int    `env:"ESL_PORT,default=8021"`
	Password string `env:"ESL_PASSWORD,default=ClueCon"`

	// User switches to userauth, it must be user@domain
	User string `env:"ESL_USER"`

	CommandTimeout  time.Duration `env:"ESL_COMMAND_TIMEOUT,default=5s"`
	LivenessTimeout time.Duration `env:"ESL_LIVENESS_TIMEOUT,default=0s"`
	EventQueue      int           `env:"ESL_EVENT_QUEUE,default=1000"`

	LogLevel string `env:"ESL_LOG_LEVEL,default=info"`

	OutboundAddr string `env:"ESL_OUTBOUND_ADDR,default=0.0.0.0:8040"`
	MaxSessions  int    `env:"ESL_MAX_SESSIONS,default=256"`

	HTTPAddr  string `env:"ESL_HTTP_ADDR,default=0.0.0.0:7362"`
	DebugHTTP bool   `env:"ESL_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith reads the config through lookuper instead of the process env.
func LoadConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}
