package conversation

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// Config holds store initialization parameters.
type Config struct {
	// Greeting seeds the log with a completed assistant turn when non-empty.
	Greeting string `json:"greeting,omitempty" mapstructure:"greeting"`
}

// DefaultConfig returns the default store configuration (no greeting).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Greeting != "" {
		c.Greeting = source.Greeting
	}
}

// New creates a Store from configuration. Currently returns an in-memory store.
func New(cfg *Config) (Store, error) {
	store := NewMemoryStore()
	if cfg.Greeting != "" {
		greeting := protocol.NewTurn(protocol.RoleAssistant, cfg.Greeting, protocol.StatusComplete)
		if err := store.Append(greeting); err != nil {
			return nil, err
		}
	}
	return store, nil
}
