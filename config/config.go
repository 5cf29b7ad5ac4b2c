// Package config loads Furrent's explicit configuration object, replacing
// the source's global DOWNLOAD_FOLDER with a struct passed at engine
// construction time.
package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// DefaultMaxTry is the number of peer attempts the piece engine makes
// before giving up on a piece and erroring its torrent.
const DefaultMaxTry = 50

// Config holds every value the engine and its collaborators need that
// isn't derived from a .torrent file.
type Config struct {
	// DownloadFolder is prepended to every subpiece path before it's
	// handed to the Writer collaborator.
	DownloadFolder string
	// MaxTry bounds how many peer attempts a single piece task gets before
	// its torrent transitions to Error.
	MaxTry int
	// WorkerCount overrides the default worker pool size
	// (hardware_concurrency - 1, floor 1) when > 0.
	WorkerCount int
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DownloadFolder: "downloads",
		MaxTry:         DefaultMaxTry,
		WorkerCount:    0,
	}
}

// WorkerCountOrDefault resolves WorkerCount against the host's hardware
// concurrency, floored at 1, the way the worker pool (§4.E) is specified.
func (c Config) WorkerCountOrDefault() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// MaxTryOrDefault resolves MaxTry to DefaultMaxTry when unset.
func (c Config) MaxTryOrDefault() int {
	if c.MaxTry > 0 {
		return c.MaxTry
	}
	return DefaultMaxTry
}

// Load reads configuration from a file (if present) and the environment,
// via viper, overlaying Default(). configPath may be empty, in which case
// only environment variables (FURRENT_DOWNLOAD_FOLDER, FURRENT_MAX_TRY,
// FURRENT_WORKER_COUNT) and defaults apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("FURRENT")
	v.AutomaticEnv()
	v.SetDefault("download_folder", cfg.DownloadFolder)
	v.SetDefault("max_try", cfg.MaxTry)
	v.SetDefault("worker_count", cfg.WorkerCount)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg.DownloadFolder = v.GetString("download_folder")
	cfg.MaxTry = v.GetInt("max_try")
	cfg.WorkerCount = v.GetInt("worker_count")
	return cfg, nil
}
