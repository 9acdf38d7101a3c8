package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func askCMD(flags *globalFlags) *cobra.Command {
	var asJSON bool
	var ask = &cobra.Command{
		Use:   "ask <query...>",
		Short: "Answer one query from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.Close(shutdownCtx)
			}()

			ans, err := a.pipeline.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(ans); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, ans.Text)
				fmt.Fprintln(out)
				if ans.Approved {
					fmt.Fprintln(out, "✅ Critic Agent: PASS")
				}
			}
			if !ans.Approved {
				return &exitError{code: 2, msg: fmt.Sprintf("critic did not approve the answer after %d attempt(s): %s", ans.Attempts, ans.Critique.Reason)}
			}
			return nil
		},
	}
	ask.Flags().BoolVar(&asJSON, "json", false, "print the full answer as JSON")

	return ask
}
