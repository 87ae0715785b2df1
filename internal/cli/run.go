package cli

import (
	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для просмотра запусков.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect flow runs",
	}

	cmd.AddCommand(newRunShowCmd(clientFn, outputFn))

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "show RUN_ID",
		Aliases: []string{"get"},
		Short:   "Show persisted run state",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			printState(out, state)
			return nil
		},
	}
}
