package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCMD() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "askweb",
		Short:         "Web search question answering with a self-critiquing LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default is ./askweb.yaml when present)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "file with KEY=VALUE credentials, never overrides the environment")

	root.AddCommand(serveCMD(flags), askCMD(flags), versionCMD())
	return root
}

func main() {
	if err := newRootCMD().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

func versionCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the askweb version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "askweb", version)
		},
	}
}
