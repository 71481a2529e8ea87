// Package config loads client configuration from flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the production league API.
const DefaultAPIBaseURL = "https://mrowberry.com/trashtalk/"

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	API       APIConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Sync      SyncConfig
	DevServer DevServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// APIConfig configures the league/chore API client.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration // per request (default: 30s)
	RPS     float64       // outbound requests per second per endpoint (default: 5)
	Burst   int           // default: 10
}

// StorageConfig holds local storage configuration.
type StorageConfig struct {
	// DataPath holds the profile/session database and the session key.
	DataPath string
}

// AuthConfig holds local identity configuration.
type AuthConfig struct {
	SessionDuration time.Duration // default: 720h
}

// SyncConfig tunes controller reload behavior.
type SyncConfig struct {
	// StaleGuard discards reload results overtaken by a newer reload.
	// Off by default: the last reload to finish wins.
	StaleGuard bool
}

// DevServerConfig configures the local reference server.
type DevServerConfig struct {
	Port     string
	DataPath string  // empty keeps everything in memory
	RPS      float64 // per client IP, 0 disables limiting
	Burst    int     // default: 20
}

// DatabasePath is the dev server's SQLite file, or "" for in-memory.
func (c DevServerConfig) DatabasePath() string {
	if c.DataPath == "" {
		return ""
	}
	return filepath.Join(c.DataPath, "devserver.db")
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// args excludes the program name. Unparsed positional arguments are returned.
func LoadConfig(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("trashtalk", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	apiBaseURL := fs.String("api-url", "", "League API base URL")
	apiTimeout := fs.String("api-timeout", "", "Per-request timeout (default: 30s)")
	apiRPS := fs.String("api-rps", "", "Requests per second per endpoint (default: 5)")
	apiBurst := fs.String("api-burst", "", "Request burst per endpoint (default: 10)")
	dataPath := fs.String("data-path", "", "Directory for local profile and session data")
	sessionDuration := fs.String("session-duration", "", "Session lifetime (default: 720h)")
	staleGuard := fs.String("stale-guard", "", "Discard overtaken reloads (default: false)")
	devPort := fs.String("dev-port", "", "Dev server port (default: 8089)")
	devDataPath := fs.String("dev-data-path", "", "Dev server data directory (default: in memory)")
	devRPS := fs.String("dev-rps", "", "Dev server requests per second per client (default: unlimited)")
	devBurst := fs.String("dev-burst", "", "Dev server request burst per client (default: 20)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	// Missing .env files are fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL: getConfigValue(*apiBaseURL, "API_BASE_URL", DefaultAPIBaseURL),
			Burst:   getIntConfigValue(*apiBurst, "API_BURST", 10),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Sync: SyncConfig{
			StaleGuard: getBoolConfigValue(*staleGuard, "STALE_GUARD", false),
		},
		DevServer: DevServerConfig{
			Port:     getConfigValue(*devPort, "DEVSERVER_PORT", "8089"),
			DataPath: getConfigValue(*devDataPath, "DEVSERVER_DATA_PATH", ""),
			Burst:    getIntConfigValue(*devBurst, "DEVSERVER_BURST", 20),
		},
	}

	rpsStr := getConfigValue(*apiRPS, "API_RPS", "5")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid api rps %q: %w", rpsStr, err)
	}
	cfg.API.RPS = rps

	devRPSStr := getConfigValue(*devRPS, "DEVSERVER_RPS", "0")
	cfg.DevServer.RPS, err = strconv.ParseFloat(devRPSStr, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid dev server rps %q: %w", devRPSStr, err)
	}

	timeoutStr := getConfigValue(*apiTimeout, "API_TIMEOUT", "30s")
	cfg.API.Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid api timeout %q: %w", timeoutStr, err)
	}

	sessionStr := getConfigValue(*sessionDuration, "SESSION_DURATION", "720h")
	cfg.Auth.SessionDuration, err = time.ParseDuration(sessionStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid session duration %q: %w", sessionStr, err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return errors.New("api timeout must be positive")
	}
	if c.API.Burst < 1 {
		return errors.New("api burst must be at least 1")
	}
	if c.Auth.SessionDuration <= 0 {
		return errors.New("session duration must be positive")
	}
	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	return nil
}

// DatabasePath is where the local Badger database lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "db")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, ".trashtalk"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads KEY=value lines from path. Variables already set in the
// environment win over the file.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the user's flags
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
