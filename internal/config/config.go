// Package config loads quizdungeon settings from an optional YAML file,
// QUIZDUNGEON_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/game"
)

// EnvPrefix is prepended to every environment override, e.g.
// QUIZDUNGEON_SERVER_PORT or QUIZDUNGEON_RULES_TOTAL_ENCOUNTERS.
const EnvPrefix = "QUIZDUNGEON"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Rules  game.Rules   `mapstructure:"rules"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the database. An empty Path falls back to
// store.DefaultDBPath.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Loader owns the viper instance and the last good configuration.
type Loader struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg *Config
}

// Load reads configuration. With an empty path it looks for config.yaml in
// the working directory and in the user config directory; a missing file is
// not an error.
func Load(path string) (*Loader, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "quizdungeon"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	l := &Loader{v: v}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.cfg = cfg
	return l, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// File returns the config file in use, or "" when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return cfg, nil
}

// reload re-decodes the watched file. The previous configuration is kept
// when the new one is invalid.
func (l *Loader) reload() (*Config, error) {
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Watch reloads the file on change and hands each valid configuration to
// onChange. Invalid edits are logged and ignored.
func (l *Loader) Watch(log *zap.Logger, onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.reload()
		if err != nil {
			log.Warn("config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("file", e.Name), zap.Stringer("op", e.Op))
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "quizdungeon.log")
	v.SetDefault("log.file.max_size", 50)
	v.SetDefault("log.file.max_age", 14)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)

	r := game.DefaultRules()
	v.SetDefault("rules.player_max_hp", r.PlayerMaxHP)
	v.SetDefault("rules.total_encounters", r.TotalEncounters)
	v.SetDefault("rules.boss_every", r.BossEvery)
	v.SetDefault("rules.base_damage", r.BaseDamage)
	v.SetDefault("rules.score_per_answer", r.ScorePerAnswer)
	for d, m := range r.DifficultyMultipliers {
		v.SetDefault("rules.difficulty_multipliers."+string(d), m)
	}
	v.SetDefault("rules.scaling.kind", string(r.Scaling.Kind))
	v.SetDefault("rules.scaling.factor", r.Scaling.Factor)
	v.SetDefault("rules.scaling.step", r.Scaling.Step)
	v.SetDefault("rules.scaling.every", r.Scaling.Every)
	v.SetDefault("rules.drops.chance", r.Drops.Chance)
	v.SetDefault("rules.drops.every", r.Drops.Every)
	v.SetDefault("rules.max_inventory", r.MaxInventory)
	v.SetDefault("rules.question_buffer", r.QuestionBuffer)
	v.SetDefault("rules.min_questions_to_start", r.MinQuestionsToStart)
	v.SetDefault("rules.weak_area_min_attempts", r.WeakAreaMinAttempts)
	v.SetDefault("rules.weak_area_cutoff", r.WeakAreaCutoff)
	v.SetDefault("rules.weak_topic_boost", r.WeakTopicBoost)
}
