// Package config loads solver and service settings from the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/logging"
	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/genetic"
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	GA struct {
		PopulationSize int     `env:"GA_POPULATION_SIZE" envDefault:"50"`
		MaxGenerations int     `env:"GA_MAX_GENERATIONS" envDefault:"1000"`
		CrossoverRate  float64 `env:"GA_CROSSOVER_RATE" envDefault:"1.0"`
		MutationRate   float64 `env:"GA_MUTATION_RATE" envDefault:"0.1"`
		CrossoverMode  string  `env:"GA_CROSSOVER_MODE" envDefault:"uox"`
		TournamentSize int     `env:"GA_TOURNAMENT_SIZE" envDefault:"2"`
		Seed           int64   `env:"GA_SEED" envDefault:"0"`
	}
	Jobs struct {
		MaxConcurrent int           `env:"JOBS_MAX_CONCURRENT" envDefault:"4"`
		Retention     time.Duration `env:"JOBS_RETENTION" envDefault:"1h"`
		MaxRetained   int           `env:"JOBS_MAX_RETAINED" envDefault:"100"`
	}
	Report struct {
		Dir string `env:"REPORT_DIR" envDefault:"results"`
	}
}

// Load reads DefaultEnvFile if it exists and then parses the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile reads the given dotenv file, if it exists, and then parses the
// environment. Variables already set in the process win over the file.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, errors.Wrapf(err, "load %s", envFile).WithComponent("config")
			}
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment").WithComponent("config")
	}

	// Verbose engine logs are the norm while developing
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the service settings and the GA defaults.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.Errorf("HTTP_PORT must be in 1..65535, got %d", c.HTTP.Port).WithComponent("config")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "LOG_LEVEL").WithComponent("config")
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return errors.Wrap(err, "LOG_FORMAT").WithComponent("config")
	}
	if c.Jobs.MaxConcurrent < 1 {
		return errors.Errorf("JOBS_MAX_CONCURRENT must be at least 1, got %d", c.Jobs.MaxConcurrent).WithComponent("config")
	}
	if c.Jobs.Retention < 0 {
		return errors.Errorf("JOBS_RETENTION must not be negative, got %s", c.Jobs.Retention).WithComponent("config")
	}
	if c.Jobs.MaxRetained < 0 {
		return errors.Errorf("JOBS_MAX_RETAINED must not be negative, got %d", c.Jobs.MaxRetained).WithComponent("config")
	}
	oc, err := c.OptimizerConfig()
	if err != nil {
		return err
	}
	if err := oc.Validate(genetic.Elitism); err != nil {
		return errors.Wrap(err, "GA settings").WithComponent("config")
	}
	return nil
}

// OptimizerConfig converts the GA settings into the engine's configuration.
func (c *Config) OptimizerConfig() (optimization.OptimizerConfig, error) {
	mode, err := optimization.ParseCrossoverMode(c.GA.CrossoverMode)
	if err != nil {
		return optimization.OptimizerConfig{}, errors.Wrap(err, "GA_CROSSOVER_MODE").WithComponent("config")
	}
	return optimization.OptimizerConfig{
		PopulationSize: c.GA.PopulationSize,
		MaxGenerations: c.GA.MaxGenerations,
		CrossoverRate:  c.GA.CrossoverRate,
		MutationRate:   c.GA.MutationRate,
		CrossoverMode:  mode,
		TournamentSize: c.GA.TournamentSize,
		RandomSeed:     c.GA.Seed,
	}, nil
}
