package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guipratiko/Clerky-app/internal/infra/sqlite"
)

const (
	// DefaultPort is used when PORT is unset.
	DefaultPort = 3748

	// RegisterTimeout bounds one device enrollment subprocess.
	RegisterTimeout = 30 * time.Second
	// BuildTimeout bounds one build-trigger subprocess.
	BuildTimeout = 60 * time.Second
	// MaxToolOutputBytes caps stdout+stderr of one subprocess.
	MaxToolOutputBytes = 10 << 20
)

// Config captures the tunables required to start the gateway.
type Config struct {
	Addr         string
	ToolBin      string
	ProjectRoot  string
	PublicDir    string
	ManifestPath string
	DatabaseDSN  string
	LogLevel     string
}

// FromEnv builds a Config from the environment. PORT is the only knob the
// installer-facing docs mention; the rest default to the layout the build
// tool expects (service directory inside the project root).
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        fmt.Sprintf(":%d", DefaultPort),
		ToolBin:     envOr("GATEWAY_TOOL_BIN", "fastlane"),
		ProjectRoot: envOr("GATEWAY_PROJECT_ROOT", ".."),
		PublicDir:   envOr("GATEWAY_PUBLIC_DIR", "public"),
		DatabaseDSN: envOr("GATEWAY_DB_DSN", sqlite.MemoryDSN),
		LogLevel:    envOr("GATEWAY_LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", raw)
		}
		cfg.Addr = fmt.Sprintf(":%d", port)
	}

	cfg.ManifestPath = envOr("GATEWAY_MANIFEST_PATH", filepath.Join(cfg.PublicDir, "manifest.plist"))

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
