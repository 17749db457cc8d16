package config

import (
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"OMOK_LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"OMOK_HTTP_PORT" env-default:"9090"`
	Redis     Redis     `yaml:"redis"`
	Game      Game      `yaml:"game"`
	WebSocket WebSocket `yaml:"websocket"`
}

type Redis struct {
	Host     string `yaml:"host" env:"OMOK_REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"OMOK_REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"OMOK_REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"OMOK_REDIS_DB" env-default:"0"`
}

type Game struct {
	CountdownFrom int           `yaml:"countdown-from" env-default:"5"`
	TickInterval  time.Duration `yaml:"tick-interval" env-default:"1s"`
	// TurnTimeout of 0 disables the per-turn clock.
	TurnTimeout time.Duration `yaml:"turn-timeout" env-default:"0s"`
	SendBuffer  int           `yaml:"send-buffer" env-default:"64"`
}

type WebSocket struct {
	ReadLimit    int64         `yaml:"read-limit" env-default:"4096"`
	WriteTimeout time.Duration `yaml:"write-timeout" env-default:"10s"`
	PingPeriod   time.Duration `yaml:"ping-period" env-default:"30s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return net.JoinHostPort(that.Host, that.Port)
}

// PongWait - how long a connection may stay silent before it is dropped.
func (that *WebSocket) PongWait() time.Duration {
	return that.PingPeriod * 10 / 9
}
