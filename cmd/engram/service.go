package main

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program satisfies service.Interface for control actions. The unit
// itself runs `engram start`, so these hooks never execute under a
// service manager.
type program struct{}

func (program) Start(service.Service) error { return nil }
func (program) Stop(service.Service) error  { return nil }

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run engram under the system service manager",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file the service starts with")

	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		cmd.AddCommand(serviceControlCmd(action))
	}
	cmd.AddCommand(serviceStatusCmd())
	return cmd
}

func serviceControlCmd(action string) *cobra.Command {
	short := map[string]string{
		"install":   "Install the system service",
		"uninstall": "Remove the system service",
		"start":     "Start the installed service",
		"stop":      "Stop the running service",
	}[action]

	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		},
	}
}

func serviceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the service is running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}

			status, err := svc.Status()
			if errors.Is(err, service.ErrNotInstalled) {
				fmt.Println("not installed")
				return nil
			}
			if err != nil {
				return err
			}
			switch status {
			case service.StatusRunning:
				fmt.Println("running")
			case service.StatusStopped:
				fmt.Println("stopped")
			default:
				fmt.Println("unknown")
			}
			return nil
		},
	}
}

func newService(cfgPath string) (service.Service, error) {
	args := []string{"start"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return service.New(program{}, &service.Config{
		Name:        "engram",
		DisplayName: "Engram",
		Description: "Conversational agent with durable session memory.",
		Arguments:   args,
	})
}
