package agent

// Default values for Config.
const (
	DefaultName        = "engram"
	DefaultDescription = "A conversational agent with persistent memory, a knowledge base, and tool use"

	DefaultContextMaxLength = 2000
)

// Config controls orchestrator behavior.
type Config struct {
	// Name and Description identify the agent in seeded memory entries
	// and on info surfaces.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// ContextMaxLength caps the assembled context string in bytes,
	// truncation marker included.
	ContextMaxLength int `yaml:"context_max_length"`

	// TurnWindow and EntryWindow bound what the assembler reads per
	// turn. Zero means the assembler defaults (5 turns, 3 entries).
	TurnWindow  int `yaml:"turn_window"`
	EntryWindow int `yaml:"entry_window"`
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Description == "" {
		c.Description = DefaultDescription
	}
	if c.ContextMaxLength <= 0 {
		c.ContextMaxLength = DefaultContextMaxLength
	}
	return c
}
