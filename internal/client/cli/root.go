package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/echolater/internal/client/config"
)

// rootState carries the App between the root command's hooks, the
// subcommands and Execute, which closes it.
type rootState struct {
	factory AppFactory
	app     *App
}

type rootFlags struct {
	configPath string
	server     string
	session    string
	timeout    time.Duration
	timezone   string
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	st := &rootState{factory: NewApp}
	err := newRootCmd(st).ExecuteContext(ctx)
	if st.app != nil {
		if cerr := st.app.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func newRootCmd(st *rootState) *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:           "echolater",
		Short:         "Capture ideas now, get back to them later",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if st.app != nil {
				st.app.out = cmd.OutOrStdout()
				return nil
			}
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			app, err := st.factory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			app.out = cmd.OutOrStdout()
			app.reader = bufio.NewReader(cmd.InOrStdin())
			st.app = app
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a JSON config file")
	pf.StringVarP(&f.server, "server", "a", "", "address and port of the server")
	pf.StringVarP(&f.session, "session", "s", "", "path of the local session database")
	pf.DurationVar(&f.timeout, "timeout", 0, "per request timeout")
	pf.StringVarP(&f.timezone, "timezone", "z", "", "IANA timezone used to read dates in notes")

	app := func() *App { return st.app }

	root.AddCommand(
		registerCmd(app),
		loginCmd(app),
		logoutCmd(app),
		recordCmd(app),
		noteCmd(app),
		listCmd(app),
		showCmd(app),
		doneCmd(app),
		rmCmd(app),
		audioCmd(app),
		shellCmd(st),
	)
	return root
}

// loadConfig layers defaults, the JSON file and explicitly set flags.
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerEndpointAddr = f.server
	}
	if flags.Changed("session") {
		cfg.SessionPath = f.session
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = f.timeout
	}
	if flags.Changed("timezone") {
		cfg.Timezone = f.timezone
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

var errNoApp = errors.New("client is not initialized")
