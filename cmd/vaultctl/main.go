// vaultctl: administrative commands for a filevault deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server"
	"github.com/dmitrijs2005/filevault/internal/server/config"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

// openStorage is a seam for tests.
var openStorage = server.OpenStorage

type rootOptions struct {
	configPath string
	dsn        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "Administer a filevault server",
		Long: `vaultctl runs maintenance tasks against the database and secrets used by
the filevault server.

Configuration is read from the JSON file given with --config, or from the
file named by $FILEVAULT_CONFIG. --dsn overrides the database DSN.`,
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to the server JSON config file")
	f.StringVar(&opts.dsn, "dsn", "", "database DSN (overrides the config file)")

	root.AddCommand(
		newMigrateCmd(opts),
		newPurgeSessionsCmd(opts),
		newResetPasswordCmd(opts),
		newKeygenCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vaultctl %s\n", Version)
		},
	}
}

// load resolves the config file and applies command-line overrides.
func (o *rootOptions) load() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(flagx.ConfigEnvVar)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	return logging.ForModule(logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel), "vaultctl")
}
