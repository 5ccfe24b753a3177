// Package config loads the system configuration of the setuid helper.
//
// The file is read after the effective uid has been lowered to the caller's,
// so it must be readable by everyone (for example root:root 0644). A 0600
// file fails with a ConfigError for every caller.
package config

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/viper"

	"github.com/da-x/user-netns/internal/failure"
)

// DefaultPath is the only place configuration is read from. Environment
// variables and per-user files are never consulted: this runs setuid root.
const DefaultPath = "/etc/user-netns/config.yaml"

// keys
const (
	NetnsDir = "netns-dir"
	IPPath   = "ip-path"
	ToolPath = "tool-path"
	LogLevel = "log-level"
)

// Owner a config file must have.
var trustedUID uint32 = 0

var ipCandidates = []string{"/usr/sbin/ip", "/sbin/ip", "/usr/bin/ip", "/bin/ip"}

type Config struct {
	NetnsDir string
	IPPath   string
	ToolPath string
	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(NetnsDir, "/run/netns")
	v.SetDefault(IPPath, findIP())
	v.SetDefault(ToolPath, "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin")
	v.SetDefault(LogLevel, "warn")
}

func findIP() string {
	for _, c := range ipCandidates {
		if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
			return c
		}
	}
	return ipCandidates[0]
}

// Load reads path if it exists and falls back to defaults otherwise.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fi, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, failure.ConfigError.New("%s: %v", path, err)
	default:
		if err := trusted(path, fi); err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, failure.ConfigError.New("invalid config file %s: %v", path, err)
		}
	}

	cfg := &Config{
		NetnsDir: v.GetString(NetnsDir),
		IPPath:   v.GetString(IPPath),
		ToolPath: v.GetString(ToolPath),
		LogLevel: v.GetString(LogLevel),
	}
	for key, p := range map[string]string{NetnsDir: cfg.NetnsDir, IPPath: cfg.IPPath} {
		if !filepath.IsAbs(p) {
			return nil, failure.ConfigError.New("%s: %s must be an absolute path, got %q", path, key, p)
		}
	}
	return cfg, nil
}

// trusted accepts only root-owned files nobody else can write.
func trusted(path string, fi os.FileInfo) error {
	if !fi.Mode().IsRegular() {
		return failure.ConfigError.New("%s: not a regular file", path)
	}
	if fi.Mode().Perm()&0022 != 0 {
		return failure.ConfigError.New("%s: writable by group or others", path)
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); !ok || st.Uid != trustedUID {
		return failure.ConfigError.New("%s: not owned by root", path)
	}
	return nil
}
