package mcpserver

// defaultListen binds to loopback; MCP carries tool execution, so it
// stays private unless deliberately exposed.
const defaultListen = "127.0.0.1:8081"

// Config holds the MCP module configuration.
type Config struct {
	// Listen is the TCP address the Streamable HTTP transport binds to.
	Listen string `yaml:"listen"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
}
