package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MARKETCHAT_"

type Config struct {
	API   APIConfig   `koanf:"api"`
	Auth  AuthConfig  `koanf:"auth"`
	Chat  ChatConfig  `koanf:"chat"`
	Inbox InboxConfig `koanf:"inbox"`
	Log   LogConfig   `koanf:"log"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type AuthConfig struct {
	Token string `koanf:"token"`
}

type ChatConfig struct {
	// TypingClear hides the partner's typing indicator when no follow-up arrives.
	TypingClear time.Duration `koanf:"typing_clear"`
	// TypingDebounce is the pause after which we tell the partner we stopped typing.
	TypingDebounce time.Duration `koanf:"typing_debounce"`
	ReadLimit      int64         `koanf:"read_limit"`
}

type InboxConfig struct {
	PollInterval     time.Duration `koanf:"poll_interval"`
	PrefetchProducts bool          `koanf:"prefetch_products"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

var defaults = map[string]any{
	"api.base_url":            "http://127.0.0.1:8000/api",
	"api.timeout":             "10s",
	"chat.typing_clear":       "2000ms",
	"chat.typing_debounce":    "1200ms",
	"chat.read_limit":         1 << 20,
	"inbox.poll_interval":     "4000ms",
	"inbox.prefetch_products": true,
	"log.level":               "info",
	"log.pretty":              false,
}

var defaultPaths = []string{"./marketchat.toml", "$HOME/.marketchat.toml"}

// Load builds the configuration from defaults, a TOML file and MARKETCHAT_*
// environment variables, later sources overriding earlier ones. An explicit
// path must exist; otherwise the default locations are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	} else {
		for _, p := range defaultPaths {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config %s: %w", p, err)
			}
			break
		}
	}

	// MARKETCHAT_API_BASE_URL -> api.base_url
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func Validate(cfg *Config) error {
	var errs []error

	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case cfg.API.BaseURL == "":
		errs = append(errs, errors.New("api.base_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("api.base_url must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("api.base_url has no host"))
	}

	durations := map[string]time.Duration{
		"api.timeout":          cfg.API.Timeout,
		"chat.typing_clear":    cfg.Chat.TypingClear,
		"chat.typing_debounce": cfg.Chat.TypingDebounce,
		"inbox.poll_interval":  cfg.Inbox.PollInterval,
	}
	for _, key := range []string{"api.timeout", "chat.typing_clear", "chat.typing_debounce", "inbox.poll_interval"} {
		if durations[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	if cfg.Chat.ReadLimit <= 0 {
		errs = append(errs, errors.New("chat.read_limit must be positive"))
	}

	return errors.Join(errs...)
}

// Init writes a sample configuration file. It refuses to overwrite.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}

	sample := `# marketchat configuration

[api]
base_url = "http://127.0.0.1:8000/api"
timeout = "10s"

[auth]
# Bearer token issued by the storefront API. Prefer MARKETCHAT_AUTH_TOKEN.
token = ""

[chat]
typing_clear = "2000ms"
typing_debounce = "1200ms"

[inbox]
poll_interval = "4000ms"
prefetch_products = true

[log]
level = "info"
pretty = true
`

	return os.WriteFile(path, []byte(sample), 0o600)
}
