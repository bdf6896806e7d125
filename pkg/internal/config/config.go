package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Links    LinksConfig    `mapstructure:"links"`
	Database DatabaseConfig `mapstructure:"database"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Builder  BuilderConfig  `mapstructure:"builder"`
	Charts   ChartsConfig   `mapstructure:"charts"`
	Cooldown CooldownConfig `mapstructure:"cooldown"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// Guild registers commands into a single guild, handy during development.
	Guild string `mapstructure:"guild"`
}

// ChannelsConfig points at operator channels. Empty values fall back to the
// application owner.
type ChannelsConfig struct {
	Error   string `mapstructure:"error"`
	Reports string `mapstructure:"reports"`
}

type LinksConfig struct {
	Website string `mapstructure:"website"`
	Invite  string `mapstructure:"invite"`
	Docs    string `mapstructure:"docs"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
}

// DSN builds the postgres connection string.
func (v DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		v.Host, v.Port, v.User, v.Password, v.Name,
	)
}

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type BuilderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChartsConfig struct {
	Workers int `mapstructure:"workers"`
}

type CooldownConfig struct {
	Form time.Duration `mapstructure:"form"`
}

type HTTPConfig struct {
	Bind       string `mapstructure:"bind"`
	Docs       string `mapstructure:"docs"`
	AdminToken string `mapstructure:"admin_token"`
}

type GRPCConfig struct {
	Bind string `mapstructure:"bind"`
}

const MinSweepInterval = 5 * time.Second

func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "forms")
	v.SetDefault("database.path", "forms.sqlite")
	v.SetDefault("sweeper.interval", "20m")
	v.SetDefault("builder.timeout", "600s")
	v.SetDefault("charts.workers", 1)
	v.SetDefault("cooldown.form", "300s")
	v.SetDefault("http.bind", "0.0.0.0:8080")
	v.SetDefault("http.docs", "./docs/_build/html")
	v.SetDefault("grpc.bind", "0.0.0.0:7001")
	v.SetDefault("links.docs", "https://formsdiscordbot.readthedocs.io/")
}

// Load reads settings.toml from the working directory (or its parent) unless
// an explicit file is given. Environment variables prefixed with FORMS_
// override file values, e.g. FORMS_DISCORD_TOKEN.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.SetConfigName("settings")
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix("forms")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals a prepared viper instance and validates the result.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (v *Config) Validate() error {
	switch v.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", v.Database.Driver)
	}
	if v.Sweeper.Interval < MinSweepInterval {
		return fmt.Errorf("sweeper interval must be at least %s, got %s", MinSweepInterval, v.Sweeper.Interval)
	}
	if v.Builder.Timeout <= 0 {
		return fmt.Errorf("builder timeout must be positive")
	}
	if v.Charts.Workers < 1 {
		return fmt.Errorf("charts workers must be at least 1")
	}
	return nil
}
