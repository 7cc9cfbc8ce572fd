package engine

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/spaghettifunk/campusmap/engine/core"
)

// EnvPrefix prefixes every environment variable read by the application.
const EnvPrefix = "CAMPUSMAP_"

type ApplicationConfig struct {
	// The application name, used as the tracing service name.
	Name string `env:"NAME" envDefault:"campusmap"`
	// Scene variant to compose: blueprint, classical or hand-drawn.
	Variant string `env:"VARIANT" envDefault:"hand-drawn"`
	// Directory holding models, materials and scene overrides.
	AssetDir string `env:"ASSET_DIR" envDefault:"assets"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// Workers converting records concurrently.
	Workers      int           `env:"WORKERS" envDefault:"8"`
	JobQueueSize int           `env:"JOB_QUEUE_SIZE" envDefault:"64"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	// Retained diagnostic entries.
	DiagnosticsCapacity int `env:"DIAGNOSTICS_CAPACITY" envDefault:"256"`
	// OTLP/HTTP collector URL. Tracing is off when empty.
	OTLPEndpoint string `env:"OTEL_ENDPOINT"`
	// Overrides the simulated location of the scene, as "x,y,z".
	Location []float64 `env:"LOCATION" envSeparator:","`
	// Read toggle commands from standard input.
	Interactive bool `env:"INTERACTIVE" envDefault:"true"`
}

// LoadApplicationConfig reads the configuration from the environment.
func LoadApplicationConfig() (*ApplicationConfig, error) {
	cfg := &ApplicationConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: parse env: %v", core.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// RegisterFlags binds command line flags that override the environment.
func (c *ApplicationConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Variant, "variant", c.Variant, "scene variant: blueprint, classical or hand-drawn")
	fs.StringVar(&c.AssetDir, "assets", c.AssetDir, "asset directory")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.IntVar(&c.Workers, "workers", c.Workers, "record conversion workers")
	fs.BoolVar(&c.Interactive, "interactive", c.Interactive, "read labels/location/quit commands from stdin")
}

func (c *ApplicationConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be > 0", core.ErrInvalidConfig)
	}
	if c.JobQueueSize < 0 {
		return fmt.Errorf("%w: job queue size must not be negative", core.ErrInvalidConfig)
	}
	if len(c.Location) != 0 && len(c.Location) != 3 {
		return fmt.Errorf("%w: location needs x,y,z", core.ErrInvalidConfig)
	}
	return nil
}
