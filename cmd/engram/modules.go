package main

// Modules compiled into this binary. Each registers itself with the
// core registry from its init function; the configuration decides
// which ones actually load.
import (
	_ "github.com/flemzord/engram/internal/agent"
	_ "github.com/flemzord/engram/internal/cron"
	_ "github.com/flemzord/engram/internal/gateway"
	_ "github.com/flemzord/engram/internal/memory"
	_ "github.com/flemzord/engram/modules/mcp"
	_ "github.com/flemzord/engram/modules/memory/postgres"
	_ "github.com/flemzord/engram/modules/memory/redis"
	_ "github.com/flemzord/engram/modules/memory/sqlite"
	_ "github.com/flemzord/engram/modules/observability/tracing"
	_ "github.com/flemzord/engram/modules/provider/gemini"
	_ "github.com/flemzord/engram/modules/provider/openai_compatible"
)
