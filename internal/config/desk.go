package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Desk holds the settings of the staff desk client.
type Desk struct {
	APIURL            string        `mapstructure:"DESK_API_URL"`
	WSURL             string        `mapstructure:"DESK_WS_URL"`
	PollInterval      time.Duration `mapstructure:"DESK_POLL_INTERVAL"`
	RequestTimeout    time.Duration `mapstructure:"DESK_REQUEST_TIMEOUT"`
	HandshakeTimeout  time.Duration `mapstructure:"DESK_HANDSHAKE_TIMEOUT"`
	ReconnectAttempts int           `mapstructure:"DESK_RECONNECT_ATTEMPTS"`
	ReconnectBackoff  time.Duration `mapstructure:"DESK_RECONNECT_BACKOFF"`
	KeyringDir        string        `mapstructure:"DESK_KEYRING_DIR"`
	Sound             bool          `mapstructure:"DESK_SOUND"`
	Env               string        `mapstructure:"ENV"`
}

func LoadDesk() (*Desk, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("DESK_API_URL", "http://localhost:8000")
	v.SetDefault("DESK_POLL_INTERVAL", "30s")
	v.SetDefault("DESK_REQUEST_TIMEOUT", "15s")
	v.SetDefault("DESK_HANDSHAKE_TIMEOUT", "10s")
	v.SetDefault("DESK_RECONNECT_ATTEMPTS", 0)
	v.SetDefault("DESK_RECONNECT_BACKOFF", "2s")
	v.SetDefault("DESK_KEYRING_DIR", "~/.clinic-desk")
	v.SetDefault("DESK_SOUND", true)
	v.SetDefault("ENV", "development")

	for _, key := range []string{
		"DESK_API_URL", "DESK_WS_URL", "DESK_POLL_INTERVAL", "DESK_REQUEST_TIMEOUT",
		"DESK_HANDSHAKE_TIMEOUT", "DESK_RECONNECT_ATTEMPTS", "DESK_RECONNECT_BACKOFF",
		"DESK_KEYRING_DIR", "DESK_SOUND", "ENV",
	} {
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Desk{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal desk config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d *Desk) IsDev() bool {
	return d.Env == "development"
}

func (d *Desk) Validate() error {
	u, err := url.Parse(d.APIURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("DESK_API_URL must be an absolute URL, got %q", d.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("DESK_API_URL scheme must be http or https, got %q", u.Scheme)
	}
	if d.PollInterval <= 0 {
		return fmt.Errorf("DESK_POLL_INTERVAL must be positive")
	}
	if d.ReconnectAttempts < 0 {
		return fmt.Errorf("DESK_RECONNECT_ATTEMPTS must not be negative")
	}
	return nil
}

// LiveURL returns the live channel endpoint. An explicit DESK_WS_URL wins;
// otherwise the API location is reused with https mapped to wss and http to ws.
func (d *Desk) LiveURL() string {
	if d.WSURL != "" {
		return d.WSURL
	}
	u, err := url.Parse(d.APIURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}
