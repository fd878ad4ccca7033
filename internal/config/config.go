package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	MeetURL     string `mapstructure:"meet_url"`
	Username    string `mapstructure:"username"`
	DisplayName string `mapstructure:"display_name"`
	LogLevel    string `mapstructure:"log_level"`
	Microphone  bool   `mapstructure:"microphone"`
	Camera      bool   `mapstructure:"camera"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("meet_url", "")
	v.SetDefault("username", "")
	v.SetDefault("display_name", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("microphone", true)
	v.SetDefault("camera", false)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
