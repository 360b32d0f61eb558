package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/engram/internal/agent"
	"github.com/flemzord/engram/pkg/app"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			sessionID, _ := cmd.Flags().GetString("session")

			inst, err := app.Load(app.RunParams{
				ConfigPath: cfgPath,
				LogLevel:   slog.LevelWarn,
			})
			if err != nil {
				return err
			}
			defer inst.Stop()

			svc, ok := inst.Service("agent.orchestrator")
			if !ok {
				return errors.New("the configuration has no agent module, add an `agent:` entry")
			}
			orch, ok := svc.(*agent.Orchestrator)
			if !ok {
				return fmt.Errorf("agent.orchestrator service is %T", svc)
			}

			return runREPL(cmd, orch, sessionID)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().StringP("session", "s", "", "Session ID to resume")
	return cmd
}

// runREPL reads lines from stdin and runs one conversation turn per
// line until EOF or /quit. An empty session ID is filled in by the
// first turn so the whole conversation stays in one session.
func runREPL(cmd *cobra.Command, orch *agent.Orchestrator, sessionID string) error {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Interactive chat. /info shows agent details, /quit exits.")
	if sessionID != "" {
		fmt.Fprintf(out, "Resuming session %s.\n", sessionID)
	}
	fmt.Fprintln(out)

	announced := sessionID != ""
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/info":
			printAgentInfo(cmd, orch, sessionID)
			continue
		}

		res := orch.HandleTurn(cmd.Context(), agent.TurnRequest{
			SessionID: sessionID,
			UserInput: line,
			UseTools:  true,
		})
		sessionID = res.SessionID
		if !announced {
			fmt.Fprintf(out, "(session %s)\n", sessionID)
			announced = true
		}
		fmt.Fprintf(out, "%s\n\n", res.Response)
	}
}

func printAgentInfo(cmd *cobra.Command, orch *agent.Orchestrator, sessionID string) {
	out := cmd.OutOrStdout()
	info, err := orch.Info(cmd.Context(), sessionID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", info.Name, info.Description)
	fmt.Fprintf(out, "model: %s\n", info.Model)
	fmt.Fprintf(out, "tools: %s\n", strings.Join(info.AvailableTools, ", "))
	if info.SessionID != "" {
		fmt.Fprintf(out, "session: %s (%d turns)\n", info.SessionID, info.TurnCount)
	}
}
