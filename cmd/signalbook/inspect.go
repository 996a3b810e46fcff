package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.json>",
	Short: "Interpret an action log read from a JSON file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the status as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	actions, err := readActions(r)
	if err != nil {
		return err
	}

	status := lifecycle.Evaluate(actions)
	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	printStatus(out, len(actions), status)
	return nil
}

// readActions accepts either a bare array of actions or a signal object
// carrying an "actions" array.
func readActions(r io.Reader) ([]core.SignalAction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var actions []core.SignalAction
	if err := json.Unmarshal(data, &actions); err == nil {
		return actions, nil
	}

	var sig core.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("decoding action log: %w", err)
	}
	return sig.Actions, nil
}

func printStatus(w io.Writer, n int, st lifecycle.Status) {
	fmt.Fprintf(w, "actions:   %d\n", n)
	fmt.Fprintf(w, "state:     %s\n", st.State)
	fmt.Fprintf(w, "result:    %s\n", orDash(st.ResultLabel))
	fmt.Fprintf(w, "last:      %s\n", orDash(st.LastEvent))
	remaining := "-"
	if st.RemainingSize.IsSome() {
		remaining = strconv.FormatFloat(st.RemainingSize.Unwrap(), 'f', -1, 64) + "%"
	}
	fmt.Fprintf(w, "remaining: %s\n", remaining)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
