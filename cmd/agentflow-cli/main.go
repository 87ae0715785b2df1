// agentflow CLI — инструмент командной строки для запуска flow
// и агентов через HTTP API.
//
// Использование:
//
//	agentflow [--api-url URL] [--user ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	flow   Просмотр и запуск flow
//	run    Просмотр сохранённых запусков
//	agent  Просмотр и вызов агентов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/agentflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var userID string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "agentflow",
		Short:         "agentflow CLI — agent orchestration tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("AGENTFLOW_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("AGENTFLOW_USER"), "User ID sent as X-User-ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, userID) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFlowCmd(clientFn, outputFn),
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewAgentCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
