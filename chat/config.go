package chat

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/streamchat/conversation"
	"github.com/tailored-agentic-units/streamchat/session"
	"github.com/tailored-agentic-units/streamchat/transport"
)

const (
	// DefaultDiagnosticSuffix is appended to a reply whose exchange failed.
	DefaultDiagnosticSuffix = "\n\n[connection to server failed, please verify the service is reachable]"

	defaultObserver = "slog"
	envPrefix       = "STREAMCHAT"
)

// Config holds initialization parameters for the controller and the
// subsystems it composes. Each section delegates to that subsystem's
// config-driven constructor.
type Config struct {
	Transport    transport.Config    `json:"transport" mapstructure:"transport"`
	Conversation conversation.Config `json:"conversation" mapstructure:"conversation"`
	Session      session.Config      `json:"session" mapstructure:"session"`
	// DiagnosticSuffix is appended once to the content of a failed reply.
	DiagnosticSuffix string `json:"diagnostic_suffix,omitempty" mapstructure:"diagnostic_suffix"`
	// Observer names a registered observability.Observer.
	Observer string `json:"observer,omitempty" mapstructure:"observer"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Transport:        transport.DefaultConfig(),
		Conversation:     conversation.DefaultConfig(),
		Session:          session.DefaultConfig(),
		DiagnosticSuffix: DefaultDiagnosticSuffix,
		Observer:         defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Transport.Merge(&source.Transport)
	c.Conversation.Merge(&source.Conversation)
	c.Session.Merge(&source.Session)

	if source.DiagnosticSuffix != "" {
		c.DiagnosticSuffix = source.DiagnosticSuffix
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON, YAML, or TOML config file, applies STREAMCHAT_*
// environment overrides (STREAMCHAT_TRANSPORT_URL, STREAMCHAT_SESSION_ID,
// ...), and merges the result onto the defaults. An empty path loads
// defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env overrides only apply to keys viper knows about.
	v.SetDefault("transport.kind", string(cfg.Transport.Kind))
	v.SetDefault("transport.url", cfg.Transport.URL)
	v.SetDefault("transport.procedure", cfg.Transport.Procedure)
	v.SetDefault("transport.handshake_timeout", cfg.Transport.HandshakeTimeout)
	v.SetDefault("conversation.greeting", cfg.Conversation.Greeting)
	v.SetDefault("session.id", cfg.Session.ID)
	v.SetDefault("diagnostic_suffix", cfg.DiagnosticSuffix)
	v.SetDefault("observer", cfg.Observer)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
