package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// shellCmd runs the other commands from an interactive prompt, reusing one
// connection and session for the whole sitting.
func shellCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt (type 'help' for commands)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := st.app
			if a == nil {
				return errNoApp
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "EchoLater shell (type 'help' for commands, 'exit' to leave)")

			for {
				status := "guest"
				if email, err := a.authService.Restore(cmd.Context()); err == nil {
					status = email
				}
				fmt.Fprintf(out, "echolater (%s)> ", status)

				line, err := a.reader.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "" {
					if err != nil {
						fmt.Fprintln(out)
						return nil
					}
					continue
				}

				switch line {
				case "exit", "quit":
					fmt.Fprintln(out, "Bye!")
					return nil
				}

				args := strings.Fields(line)
				if args[0] == "shell" {
					fmt.Fprintln(out, "already in the shell")
					continue
				}

				sub := newRootCmd(st)
				sub.SetArgs(args)
				sub.SetOut(out)
				sub.SetErr(cmd.ErrOrStderr())
				if err := sub.ExecuteContext(cmd.Context()); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				}
			}
		},
	}
}
