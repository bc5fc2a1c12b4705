package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the VM/assembler/server configuration.
type Config struct {
	// Execution settings
	Execution struct {
		MemSize         uint64 `toml:"mem_size"`
		MaxInstructions uint64 `toml:"max_instructions"`
		OSExecTimeoutMS int64  `toml:"os_exec_timeout_ms"`
		AllowOSExec     bool   `toml:"allow_os_exec"`
	} `toml:"execution"`

	// Server settings
	Server struct {
		Host           string `toml:"host"`
		Port           int    `toml:"port"`
		MaxConnections int    `toml:"max_connections"`
	} `toml:"server"`

	// Debug settings
	Debug struct {
		TraceByDefault bool   `toml:"trace_by_default"`
		TraceFile      string `toml:"trace_file"`
	} `toml:"debug"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MemSize = 0x1_0000_0000
	cfg.Execution.MaxInstructions = 1_000_000
	cfg.Execution.OSExecTimeoutMS = int64(10 * time.Second / time.Millisecond)
	cfg.Execution.AllowOSExec = true

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000
	cfg.Server.MaxConnections = 32

	cfg.Debug.TraceByDefault = false
	cfg.Debug.TraceFile = ""

	return cfg
}

// OSExecTimeout converts the configured millisecond timeout to a
// time.Duration for the VM constructor.
func (c *Config) OSExecTimeout() time.Duration {
	return time.Duration(c.Execution.OSExecTimeoutMS) * time.Millisecond
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rune-vm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rune-vm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/rune-vm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rune-vm")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rune-vm\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "rune-vm", "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/rune-vm/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "rune-vm", "logs")

	default:
		return "logs"
	}

	// Ensure directory exists
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
