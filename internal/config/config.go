package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/experience"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/rules"
)

// EnvPrefix prefixes every environment variable override, e.g.
// DRL_ENV_WIDTH or DRL_SERVER_GRPC_SERVER_PORT.
const EnvPrefix = "DRL"

// Config holds all configuration for the application
type Config struct {
	Env         EnvConfig         `mapstructure:"env"`
	Server      ServerConfig      `mapstructure:"server"`
	Experience  ExperienceConfig  `mapstructure:"experience"`
	Evaluation  EvaluationConfig  `mapstructure:"evaluation"`
	Development DevelopmentConfig `mapstructure:"development"`
}

// EnvConfig holds environment and map generation settings
type EnvConfig struct {
	Width                 int                `mapstructure:"width"`
	Height                int                `mapstructure:"height"`
	ObstacleProb          float64            `mapstructure:"obstacle_prob"`
	DropletSize           int                `mapstructure:"droplet_size"`
	MaxGenerationAttempts int                `mapstructure:"max_generation_attempts"`
	Rewards               rules.RewardConfig `mapstructure:"rewards"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	GRPCServer GRPCServerConfig `mapstructure:"grpc_server"`
}

// GRPCServerConfig holds gRPC server configuration
type GRPCServerConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	LogLevel              string        `mapstructure:"log_level"`
	MaxEnvs               int           `mapstructure:"max_envs"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	EnableReflection      bool          `mapstructure:"enable_reflection"`
	GracefulShutdownDelay int           `mapstructure:"graceful_shutdown_delay"`
	LogEvents             bool          `mapstructure:"log_events"`
}

// ExperienceConfig holds experience collection settings
type ExperienceConfig struct {
	Enabled        bool                         `mapstructure:"enabled"`
	BufferCapacity int                          `mapstructure:"buffer_capacity"`
	Persistence    experience.PersistenceConfig `mapstructure:"persistence"`
}

// EvaluationConfig holds settings for the evaluate command
type EvaluationConfig struct {
	Episodes int    `mapstructure:"episodes"`
	Workers  int    `mapstructure:"workers"`
	Seed     int64  `mapstructure:"seed"`
	MapSet   string `mapstructure:"map_set"`
	Policy   string `mapstructure:"policy"`
}

// DevelopmentConfig holds development/debug settings
type DevelopmentConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	VerboseLogging bool   `mapstructure:"verbose_logging"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
	mu  sync.RWMutex
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	rewards := rules.DefaultRewardConfig()

	// Environment defaults
	v.SetDefault("env.width", 8)
	v.SetDefault("env.height", 8)
	v.SetDefault("env.obstacle_prob", 0.9)
	v.SetDefault("env.droplet_size", 1)
	v.SetDefault("env.max_generation_attempts", 10000)
	v.SetDefault("env.rewards.goal", rewards.Goal)
	v.SetDefault("env.rewards.timeout", rewards.Timeout)
	v.SetDefault("env.rewards.progress", rewards.Progress)
	v.SetDefault("env.rewards.no_progress", rewards.NoProgress)

	// gRPC server defaults
	v.SetDefault("server.grpc_server.host", "0.0.0.0")
	v.SetDefault("server.grpc_server.port", 50051)
	v.SetDefault("server.grpc_server.log_level", "info")
	v.SetDefault("server.grpc_server.max_envs", 256)
	v.SetDefault("server.grpc_server.idle_timeout", 30*time.Minute)
	v.SetDefault("server.grpc_server.enable_reflection", true)
	v.SetDefault("server.grpc_server.graceful_shutdown_delay", 5)
	v.SetDefault("server.grpc_server.log_events", false)

	// Experience defaults
	persistence := experience.DefaultPersistenceConfig()
	v.SetDefault("experience.enabled", false)
	v.SetDefault("experience.buffer_capacity", experience.DefaultBufferCapacity)
	v.SetDefault("experience.persistence.type", string(persistence.Type))
	v.SetDefault("experience.persistence.base_dir", persistence.BaseDir)
	v.SetDefault("experience.persistence.max_file_size", persistence.MaxFileSize)
	v.SetDefault("experience.persistence.rotation_interval", persistence.RotationInterval)

	// Evaluation defaults
	v.SetDefault("evaluation.episodes", 1000)
	v.SetDefault("evaluation.workers", 4)
	v.SetDefault("evaluation.seed", 1)
	v.SetDefault("evaluation.map_set", "")
	v.SetDefault("evaluation.policy", "oracle")

	// Development defaults
	v.SetDefault("development.log_level", "info")
	v.SetDefault("development.verbose_logging", false)
}

// Init loads .env, defaults, the config file and DRL_ environment overrides
func Init(configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	nv := viper.New()

	// Set defaults before loading any config
	setViperDefaults(nv)

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/droplet-rl")
	}

	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configPath != "" && errors.Is(err, fs.ErrNotExist):
			// A missing explicit file falls back to defaults
		case configPath == "" && errors.As(err, &notFound):
		default:
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	loaded, err := decode(nv)
	if err != nil {
		return err
	}

	mu.Lock()
	v = nv
	cfg = loaded
	mu.Unlock()
	return nil
}

func decode(nv *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := nv.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Get returns the global config instance
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c != nil {
		return c
	}

	// Initialize with defaults if not already initialized
	if err := Init(""); err != nil {
		panic("failed to initialize config with defaults: " + err.Error())
	}
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// ConfigFilePath returns the path of the loaded config file, empty when
// running on defaults.
func ConfigFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. A reloaded config
// that fails validation is ignored.
func WatchConfig(onChange func(*Config)) {
	mu.RLock()
	nv := v
	mu.RUnlock()
	if nv == nil {
		return
	}

	nv.OnConfigChange(func(e fsnotify.Event) {
		reloaded, err := decode(nv)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
			return
		}
		mu.Lock()
		cfg = reloaded
		mu.Unlock()

		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("Config reloaded")
		if onChange != nil {
			onChange(reloaded)
		}
	})
	nv.WatchConfig()
}

// EnvironmentConfig builds the environment template described by the env section
func (c *Config) EnvironmentConfig() game.Config {
	ec := game.DefaultConfig(c.Env.Width, c.Env.Height)
	ec.ObstacleProb = c.Env.ObstacleProb
	ec.DropletSize = core.Footprint(c.Env.DropletSize)
	ec.MaxGenerationAttempts = c.Env.MaxGenerationAttempts
	ec.Rewards = c.Env.Rewards
	return ec
}

// ServerLogLevel is the env server's log level
func (c *Config) ServerLogLevel() zerolog.Level {
	return c.logLevel(c.Server.GRPCServer.LogLevel)
}

// DevelopmentLogLevel is the log level for the command line tools
func (c *Config) DevelopmentLogLevel() zerolog.Level {
	return c.logLevel(c.Development.LogLevel)
}

// logLevel parses name, defaulting to info. Verbose logging forces debug.
func (c *Config) logLevel(name string) zerolog.Level {
	if c.Development.VerboseLogging {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if err := c.EnvironmentConfig().Validate(); err != nil {
		return fmt.Errorf("env: %w", err)
	}

	if c.Server.GRPCServer.Port <= 0 || c.Server.GRPCServer.Port > 65535 {
		return fmt.Errorf("server.grpc_server.port must be between 1 and 65535")
	}
	if c.Server.GRPCServer.MaxEnvs < 0 {
		return fmt.Errorf("server.grpc_server.max_envs must be non-negative")
	}
	if c.Server.GRPCServer.IdleTimeout < 0 {
		return fmt.Errorf("server.grpc_server.idle_timeout must be non-negative")
	}
	if c.Server.GRPCServer.GracefulShutdownDelay < 0 {
		return fmt.Errorf("server.grpc_server.graceful_shutdown_delay must be non-negative")
	}

	if c.Experience.BufferCapacity <= 0 {
		return fmt.Errorf("experience.buffer_capacity must be positive")
	}
	switch c.Experience.Persistence.Type {
	case experience.PersistenceTypeNone, experience.PersistenceTypeFile:
	default:
		return fmt.Errorf("experience.persistence.type %q: %w", c.Experience.Persistence.Type, experience.ErrInvalidPersistenceType)
	}
	if c.Experience.Persistence.Type == experience.PersistenceTypeFile && c.Experience.Persistence.BaseDir == "" {
		return fmt.Errorf("experience.persistence.base_dir is required for file persistence")
	}

	if c.Evaluation.Episodes <= 0 {
		return fmt.Errorf("evaluation.episodes must be positive")
	}
	if c.Evaluation.Workers <= 0 {
		return fmt.Errorf("evaluation.workers must be positive")
	}
	switch c.Evaluation.Policy {
	case "oracle", "observed-oracle", "random":
	default:
		return fmt.Errorf("evaluation.policy %q must be oracle, observed-oracle or random", c.Evaluation.Policy)
	}

	return nil
}
