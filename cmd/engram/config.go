package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/engram/internal/config"
	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/pkg/app"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration by loading every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				path = resolved
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			appCtx := core.NewAppContext(logger, app.DefaultDataDir(), app.DefaultWorkspace())
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)

			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			application.Teardown()

			fmt.Printf("Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "engram.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil {
				var overwrite bool
				err := huh.NewConfirm().
					Title(fmt.Sprintf("%s exists, overwrite?", path)).
					Value(&overwrite).
					Run()
				if err != nil {
					return err
				}
				if !overwrite {
					return nil
				}
			}

			answers := initAnswers{
				DataDir: app.DefaultDataDir(),
				Listen:  "127.0.0.1:8080",
			}
			if err := runInitForm(&answers); err != nil {
				return err
			}

			if err := os.WriteFile(path, []byte(renderConfig(answers)), 0o600); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			fmt.Printf("Verify it with: engram config check %s\n", path)
			return nil
		},
	}
}

// initAnswers collects what the init form asks for.
type initAnswers struct {
	Store     string
	DataDir   string
	Backend   string
	BaseURL   string
	Model     string
	Listen    string
	AuthToken string
}

func runInitForm(a *initAnswers) error {
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Memory store").
			Description("Where conversation history and memories persist.").
			Options(
				huh.NewOption("SQLite (single file, no server)", "sqlite"),
				huh.NewOption("PostgreSQL", "postgres"),
				huh.NewOption("In-memory (nothing survives restarts)", "inmemory"),
			).
			Value(&a.Store),
		huh.NewInput().
			Title("Data directory").
			Value(&a.DataDir),
		huh.NewSelect[string]().
			Title("Generation backend").
			Options(
				huh.NewOption("Gemini (reads GEMINI_API_KEY)", "gemini"),
				huh.NewOption("OpenAI-compatible endpoint", "openai_compatible"),
			).
			Value(&a.Backend),
	)).Run()
	if err != nil {
		return err
	}

	if a.Backend == "openai_compatible" {
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Placeholder("http://localhost:11434/v1").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("base URL is required")
					}
					return nil
				}).
				Value(&a.BaseURL),
			huh.NewInput().
				Title("Model name").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model is required")
					}
					return nil
				}).
				Value(&a.Model),
		)).Run()
		if err != nil {
			return err
		}
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Gateway listen address").
			Value(&a.Listen),
		huh.NewInput().
			Title("Gateway bearer token").
			Description("Empty disables authentication.").
			EchoMode(huh.EchoModePassword).
			Value(&a.AuthToken),
	)).Run()
}

// renderConfig turns the form answers into a YAML config. Provider API
// keys stay out of the file and come from the environment.
func renderConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("version: \"1\"\n\nmodules:\n")

	switch a.Store {
	case "postgres":
		b.WriteString("  memory.postgres:\n")
		b.WriteString("    url: ${ENGRAM_POSTGRES_URL}\n")
	case "inmemory":
		b.WriteString("  memory.inmemory: {}\n")
	default:
		b.WriteString("  memory.sqlite:\n")
		fmt.Fprintf(&b, "    path: %s\n", filepath.Join(a.DataDir, "engram.db"))
	}

	if a.Backend == "openai_compatible" {
		b.WriteString("  provider.openai_compatible:\n")
		fmt.Fprintf(&b, "    base_url: %s\n", a.BaseURL)
		fmt.Fprintf(&b, "    model: %s\n", a.Model)
		b.WriteString("    api_key_env: OPENAI_API_KEY\n")
	} else {
		b.WriteString("  provider.gemini: {}\n")
	}

	b.WriteString("  agent: {}\n")
	b.WriteString("  gateway:\n")
	fmt.Fprintf(&b, "    bind: %s\n", a.Listen)
	if a.AuthToken != "" {
		b.WriteString("    auth:\n")
		fmt.Fprintf(&b, "      bearer_token: %s\n", a.AuthToken)
	}
	return b.String()
}
