package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewAgentCmd создаёт группу команд для работы с агентами.
func NewAgentCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and invoke agents",
	}

	cmd.AddCommand(
		newAgentListCmd(clientFn, outputFn),
		newAgentRunCmd(clientFn, outputFn),
		newAgentPlanCmd(clientFn, outputFn),
	)

	return cmd
}

func newAgentListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			agents, err := client.ListAgents()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "REGISTERED", "ENABLED", "DEPENDS_ON"}
			rows := make([][]string, len(agents))
			for i, a := range agents {
				rows[i] = []string{
					a.Name,
					strconv.FormatBool(a.Registered),
					strconv.FormatBool(a.Enabled),
					strings.Join(a.DependsOn, ","),
				}
			}

			out.Print(headers, rows, agents)
			return nil
		},
	}
}

func newAgentRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var inputJSON string

	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Invoke an agent with its prerequisites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			input, err := buildInput(inputs, inputJSON)
			if err != nil {
				return err
			}

			res, err := client.RunAgent(args[0], input)
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(res)
				return nil
			}

			if res.Explanation != "" {
				out.Success(res.Explanation)
			}
			out.JSON(res.Output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input parameter KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&inputJSON, "input-json", "", "Input as JSON document")

	return cmd
}

func newAgentPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plan NAME",
		Short: "Show execution order for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plan, err := client.PlanAgent(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(plan.Plan))
			for i, id := range plan.Plan {
				rows[i] = []string{fmt.Sprintf("%d", i+1), id}
			}

			out.Print([]string{"#", "AGENT"}, rows, plan)
			return nil
		},
	}
}
