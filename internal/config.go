package zbxchart

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the connection parameters of a ChartSession.
// Empty fields are treated as unset.
type Settings struct {
	BaseURL  string
	Username string
	Password string

	// Timeout bounds every HTTP request; zero means no timeout
	Timeout time.Duration
}

// Env is a snapshot of environment variables keyed by name
type Env map[string]string

// EnvFromOS captures the variables Resolve reads from the process environment
func EnvFromOS() Env {
	env := Env{}
	for _, name := range []string{ENV_SERVER, ENV_USER, ENV_PASSWORD} {
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}
	return env
}

// viper key -> environment variable
var envKeys = map[string]string{
	"server":   ENV_SERVER,
	"user":     ENV_USER,
	"password": ENV_PASSWORD,
}

// Resolve layers explicit settings over the environment snapshot over the
// built-in defaults and returns the result with a normalized base URL.
func Resolve(explicit Settings, env Env) Settings {
	v := viper.New()

	// Set defaults
	v.SetDefault("server", DEFAULT_SERVER)
	v.SetDefault("user", DEFAULT_USER)
	v.SetDefault("password", DEFAULT_PASSWORD)
	v.SetDefault("timeout", time.Duration(0))

	// The environment snapshot is the config layer so it sits between
	// defaults and explicit values
	layer := make(map[string]interface{})
	for key, name := range envKeys {
		if value := env[name]; value != "" {
			layer[key] = value
		}
	}
	// MergeConfigMap only fails on unmarshalling, which a flat string map can't
	_ = v.MergeConfigMap(layer)

	// Explicit values take precedence over everything
	if explicit.BaseURL != "" {
		v.Set("server", explicit.BaseURL)
	}
	if explicit.Username != "" {
		v.Set("user", explicit.Username)
	}
	if explicit.Password != "" {
		v.Set("password", explicit.Password)
	}
	if explicit.Timeout > 0 {
		v.Set("timeout", explicit.Timeout)
	}

	return Settings{
		BaseURL:  NormalizeBaseURL(v.GetString("server")),
		Username: v.GetString("user"),
		Password: v.GetString("password"),
		Timeout:  v.GetDuration("timeout"),
	}
}

// NormalizeBaseURL removes the JSON-RPC endpoint suffix so callers can pass
// an API URL by mistake. A URL that ends with the suffix is returned as is.
func NormalizeBaseURL(raw string) string {
	if strings.HasSuffix(raw, API_SUFFIX) {
		return raw
	}
	return strings.ReplaceAll(raw, API_SUFFIX, "")
}
