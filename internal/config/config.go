package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Clear      ClearConfig      `mapstructure:"clear"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// Discord bot configuration
type BotConfig struct {
	Token     string `mapstructure:"token"`
	AppID     string `mapstructure:"app_id"`
	DevUserID string `mapstructure:"dev_user_id"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// mute bounds and sweep settings
type ModerationConfig struct {
	MinMuteSeconds int `mapstructure:"min_mute_seconds"`
	MaxMuteDays    int `mapstructure:"max_mute_days"`
	SweepInterval  int `mapstructure:"sweep_interval"`
}

// quick-clear feature settings
type ClearConfig struct {
	DefaultTrigger string `mapstructure:"default_trigger"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// MinMuteDuration returns the lower mute bound as a duration.
func (m ModerationConfig) MinMuteDuration() time.Duration {
	return time.Duration(m.MinMuteSeconds) * time.Second
}

// MaxMuteDuration returns the upper mute bound as a duration.
func (m ModerationConfig) MaxMuteDuration() time.Duration {
	return time.Duration(m.MaxMuteDays) * 24 * time.Hour
}

// SweepIntervalDuration returns the expired-mute sweep interval.
func (m ModerationConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(m.SweepInterval) * time.Second
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.dev_user_id", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("moderation.min_mute_seconds", 1)
	v.SetDefault("moderation.max_mute_days", 28)
	v.SetDefault("moderation.sweep_interval", 60)

	v.SetDefault("clear.default_trigger", ".cl")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.charset", "utf8mb4")
}
