package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// NewFlowCmd создаёт группу команд для работы с flows.
func NewFlowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect and run flows",
	}

	cmd.AddCommand(
		newFlowListCmd(clientFn, outputFn),
		newFlowShowCmd(clientFn, outputFn),
		newFlowRunCmd(clientFn, outputFn),
	)

	return cmd
}

func newFlowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List flows in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ids, err := client.ListFlows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(ids))
			for i, id := range ids {
				rows[i] = []string{id}
			}

			out.Print([]string{"ID"}, rows, ids)
			return nil
		},
	}
}

func newFlowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show FLOW_ID",
		Short: "Show flow definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.GetFlow(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(resp)
				return nil
			}

			fields := [][2]string{
				{"ID", resp.Flow.ID},
				{"Name", resp.Flow.Name},
				{"Valid", strconv.FormatBool(resp.Valid)},
			}
			if resp.Error != "" {
				fields = append(fields, [2]string{"Error", resp.Error})
			}
			out.Fields(fields)

			headers := []string{"STEP", "AGENT", "ON_ERROR", "FALLBACK", "TIMEOUT"}
			rows := make([][]string, len(resp.Flow.Steps))
			for i, s := range resp.Flow.Steps {
				timeout := ""
				if s.TimeoutSec > 0 {
					timeout = strconv.Itoa(s.TimeoutSec) + "s"
				}
				rows[i] = []string{s.ID, s.Agent, s.OnError, s.FallbackAgent, timeout}
			}
			out.Table(headers, rows)
			return nil
		},
	}
}

func newFlowRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var inputJSON string
	var async bool

	cmd := &cobra.Command{
		Use:   "run FLOW_ID",
		Short: "Run a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			input, err := buildInput(inputs, inputJSON)
			if err != nil {
				return err
			}

			if async {
				run, err := client.QueueFlow(args[0], input)
				if err != nil {
					return err
				}
				if out.JSONMode() {
					out.JSON(run)
					return nil
				}
				out.Success(fmt.Sprintf("Run %s queued (flow %s)", run.RunID, run.FlowID))
				return nil
			}

			state, err := client.RunFlow(args[0], input)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.State != nil {
					printState(out, apiErr.State)
				}
				return err
			}

			printState(out, state)
			if !state.Completed {
				out.Error(fmt.Sprintf("run %s aborted", state.ID))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input parameter KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&inputJSON, "input-json", "", "Input as JSON document")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the run instead of waiting for the result")

	return cmd
}

// buildInput собирает вход flow из --input-json и --input KEY=VALUE.
// Пары накладываются поверх JSON. Значение, являющееся валидным JSON,
// подставляется как JSON, иначе как строка.
func buildInput(pairs []string, raw string) (map[string]any, error) {
	input := make(map[string]any)

	if raw != "" {
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("invalid --input-json: not a JSON document")
		}
		doc, ok := gjson.Parse(raw).Value().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid --input-json: expected JSON object")
		}
		input = doc
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", pair)
		}
		if gjson.Valid(value) {
			input[key] = gjson.Parse(value).Value()
		} else {
			input[key] = value
		}
	}

	return input, nil
}

// printState выводит состояние запуска: сводку и таблицу шагов.
func printState(out *Output, state *FlowState) {
	if out.JSONMode() {
		out.JSON(state)
		return
	}

	fields := [][2]string{
		{"Run", state.ID},
		{"Flow", state.FlowID},
		{"User", state.UserID},
		{"Started", state.Started},
		{"Completed", strconv.FormatBool(state.Completed)},
	}
	if state.Finished != "" {
		fields = append(fields, [2]string{"Finished", state.Finished})
	}
	if state.Error != "" {
		fields = append(fields, [2]string{"Error", state.Error})
	}
	out.Fields(fields)

	headers := []string{"STEP", "AGENT", "SUCCESS", "FALLBACK", "ERROR"}
	rows := make([][]string, len(state.Steps))
	for i, s := range state.Steps {
		fallback := ""
		if s.Fallback != nil {
			fallback = s.Fallback.Agent
		} else if s.FallbackError != "" {
			fallback = "failed: " + s.FallbackError
		}
		rows[i] = []string{s.ID, s.Agent, strconv.FormatBool(s.Success), fallback, s.Error}
	}
	out.Table(headers, rows)
}
