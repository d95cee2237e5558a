// Package config provides application configuration for samd. A viper
// instance loads a YAML file at a user/system-mode-dependent default path
// over built-in defaults; cmd/samd then ORs its --dev-mode and
// --user-mode flags into the result (a flag can turn a mode on, not off).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// getuid is the function used to retrieve the current user id. It is a
// variable so tests can simulate root/non-root environments.
var getuid = os.Getuid

// IsUserMode returns true if running as a non-root user (uid != 0). SAM
// normally runs as the system service user on-device; user mode exists for
// local development against a session bus.
func IsUserMode() bool {
	return getuid() != 0
}

// AppConfig holds every tunable of the lifecycle engine and its bus wiring.
type AppConfig struct {
	// ServiceName is the primary service name samd registers on the bus.
	ServiceName string `mapstructure:"serviceName"`
	// CompatNames are additional names samd registers for backward
	// compatibility with older bus clients.
	CompatNames []string `mapstructure:"compatNames"`
	// DevMode exposes the "/dev" category (closeByAppId restricted to
	// Dev-typed apps, etc.) in addition to "/".
	DevMode bool `mapstructure:"devMode"`
	// UserMode runs against the user/session bus instead of the system bus.
	UserMode bool `mapstructure:"userMode"`

	// DeletedAppsFile is the path to the persisted deleted-system-apps list.
	DeletedAppsFile string `mapstructure:"deletedAppsFile"`

	// AvailableMemoryMB is the memory budget the Memory Checker admits
	// launches against; a package whose RequiredMemory exceeds it is
	// rejected with a memoryReclaim-flavored error.
	AvailableMemoryMB int `mapstructure:"availableMemoryMB"`

	// NativeV2RegistrationWindow is how long a native-v2 child has to
	// call registerApp after Launching before registration expires.
	NativeV2RegistrationWindow time.Duration `mapstructure:"nativeV2RegistrationWindow"`
	// KillEscalationTimeout is how long a close waits for graceful exit
	// before escalating to SIGKILL on the process group.
	KillEscalationTimeout time.Duration `mapstructure:"killEscalationTimeout"`
	// LastLoadingAppGuard bounds how long the web handler waits for the
	// first launch of a cold web runtime to settle.
	LastLoadingAppGuard time.Duration `mapstructure:"lastLoadingAppGuard"`

	// LocaleFallbackDirs is the ordered list of locale resource
	// directories consulted when rewriting a package's "$foo" asset
	// tokens (first existing directory wins).
	LocaleFallbackDirs []string `mapstructure:"localeFallbackDirs"`
}

// Defaults returns the configuration baseline used when no file or flag
// overrides a field; values match §5's authoritative timeouts.
func Defaults() AppConfig {
	return AppConfig{
		ServiceName:                "com.webos.applicationManager",
		CompatNames:                []string{"com.palm.applicationManager"},
		DeletedAppsFile:            defaultDeletedAppsFile(),
		AvailableMemoryMB:          512,
		NativeV2RegistrationWindow: 3 * time.Second,
		KillEscalationTimeout:      1 * time.Second,
		LastLoadingAppGuard:        30 * time.Second,
		LocaleFallbackDirs:         []string{"/usr/share/localization", "/usr/share/localization/en-US"},
	}
}

func defaultDeletedAppsFile() string {
	if IsUserMode() {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config/sam/deleted-system-apps.json")
	}
	return "/var/luna/preferences/deletedSystemApps.json"
}

// Load reads configuration from path (if it exists) layered over Defaults(),
// using viper so unset fields keep their default. No CLI flags are bound
// into v here; cmd/samd applies its own flags to the returned config.
func Load(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := Defaults()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for key, val := range defaultsMap(cfg) {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultsMap mirrors AppConfig's zero-value-safe defaults into viper's
// default layer so partially-specified config files don't zero out fields
// the file omits.
func defaultsMap(cfg AppConfig) map[string]any {
	return map[string]any{
		"serviceName":                cfg.ServiceName,
		"compatNames":                cfg.CompatNames,
		"deletedAppsFile":            cfg.DeletedAppsFile,
		"availableMemoryMB":          cfg.AvailableMemoryMB,
		"nativeV2RegistrationWindow": cfg.NativeV2RegistrationWindow,
		"killEscalationTimeout":      cfg.KillEscalationTimeout,
		"lastLoadingAppGuard":        cfg.LastLoadingAppGuard,
		"localeFallbackDirs":         cfg.LocaleFallbackDirs,
	}
}

// DefaultConfigPath returns the default config file path for the current
// user/system mode, matching the precedence a cobra root command
// uses to pick between "/etc/..." and "$HOME/.config/...".
func DefaultConfigPath() string {
	if IsUserMode() {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config/sam/config.yaml")
	}
	return "/etc/sam/config.yaml"
}
