package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHotkey          = "Ctrl+Shift+S"
	DefaultPermissionRetry = 1500 * time.Millisecond
	DefaultCaptureBackend  = "auto"
	CaptureBackendEnvVar   = "CAPTURE_BACKEND"
	SettingsPathEnvVar     = "SETTINGS_PATH"
	AltEnvFileEnvVar       = "SNIPPER_ENV"
	defaultPortStart       = 49500
	defaultPortEnd         = 49550
)

type LoadOptions struct {
	SaveDirOverride        string
	CaptureBackendOverride string
	SettingsPathOverride   string
}

type Config struct {
	EnableFileLogging bool
	Hotkey            string
	CaptureBackend    string
	PermissionRetry   time.Duration
	SoundEnabled      bool
	SettingsPath      string
	// SaveDir, when set, replaces the stored save path for this process only.
	SaveDir   string
	PortStart int
	PortEnd   int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SNIPPER_ENV env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	retry := DefaultPermissionRetry
	if v := os.Getenv("PERMISSION_RETRY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retry = time.Duration(n) * time.Millisecond
		}
	}

	cfg := &Config{
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		CaptureBackend:    resolveCaptureBackend(opts, dotenvValues),
		PermissionRetry:   retry,
		SoundEnabled:      getBool("SOUND_ENABLED", true),
		SettingsPath:      firstNonEmpty(opts.SettingsPathOverride, os.Getenv(SettingsPathEnvVar)),
		SaveDir:           strings.TrimSpace(opts.SaveDirOverride),
		PortStart:         getInt("SINGLEINSTANCE_PORT_START", defaultPortStart),
		PortEnd:           getInt("SINGLEINSTANCE_PORT_END", defaultPortEnd),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(AltEnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

// resolveCaptureBackend prefers the CLI override, then the .env file, then the environment.
func resolveCaptureBackend(opts LoadOptions, dotenvValues map[string]string) string {
	backend := DefaultCaptureBackend

	if v := strings.TrimSpace(os.Getenv(CaptureBackendEnvVar)); v != "" {
		backend = v
	}

	if v := strings.TrimSpace(dotenvValues[CaptureBackendEnvVar]); v != "" {
		backend = v
	}

	if v := strings.TrimSpace(opts.CaptureBackendOverride); v != "" {
		backend = v
	}

	switch b := strings.ToLower(backend); b {
	case "auto", "modern", "legacy":
		return b
	default:
		return DefaultCaptureBackend
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
