package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	app "github.com/rocketscienceinc/omok-backend/internal"
	"github.com/rocketscienceinc/omok-backend/internal/config"
)

const configFile = "config.yml"

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "omok server stopped: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := loadConfig()

	if err := app.RunApp(newLogger(conf.LogLevel), conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// loadConfig - reads config.yml from the working directory; OMOK_* variables override it.
func loadConfig() *config.Config {
	workDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get working directory: %w", err))
	}

	return config.MustLoad(filepath.Join(workDir, configFile))
}

// newLogger - JSON logs on stdout; unknown levels fall back to info.
func newLogger(level string) *slog.Logger {
	var minLevel slog.Level

	switch level {
	case "debug":
		minLevel = slog.LevelDebug
	case "warn":
		minLevel = slog.LevelWarn
	case "error":
		minLevel = slog.LevelError
	default:
		minLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: minLevel}))
}
