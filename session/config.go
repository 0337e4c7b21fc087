package session

// Config holds session initialization parameters.
type Config struct {
	// ID is sent to the remote side with every request. Empty generates a UUIDv7.
	ID string `json:"id,omitempty" mapstructure:"id"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.ID != "" {
		c.ID = source.ID
	}
}

// New creates a Session from configuration.
func New(cfg *Config) *Session {
	return NewSession(cfg.ID)
}
