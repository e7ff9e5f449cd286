package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultdoor/internal/config"
)

// BuildInfo carries the link-time version stamps from main.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// rootOptions holds the global flags shared by the root command and its
// subcommands. Flags are the last configuration layer and win over the
// file and environment.
type rootOptions struct {
	configFile string
	listen     string
	storeType  string
	storeURL   string
	debug      bool
	noColor    bool
}

// NewRootCommand builds the vaultdoor CLI. Running it with no
// subcommand starts the server.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vaultdoor",
		Short: "One door to your secret store",
		Long: `VaultDoor fronts a single secret store behind a small authenticated
HTTP API with a bounded read cache, so applications get and set secrets
without carrying vault SDKs or vault credentials themselves.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", build.Version, build.Commit, build.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file path (vaultdoor.yaml is read when present)")
	cmd.PersistentFlags().StringVar(&opts.storeType, "store-type", "", "Secret store type (memory, azure.keyvault, aws.secretsmanager, ...)")
	cmd.PersistentFlags().StringVar(&opts.storeURL, "store-url", "", "Secret store URL or endpoint")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Listen address, host:port form")

	cmd.AddCommand(
		NewDoctorCommand(opts),
		NewVersionCommand(build),
		NewCompletionCommand(),
	)

	return cmd
}

// loadConfig builds the configuration with the command line flags
// layered on top.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	return config.LoadWithOverrides(opts.configFile, func(c *config.Config) {
		if opts.listen != "" {
			c.Listen = opts.listen
		}
		if opts.storeType != "" {
			c.Store.Type = opts.storeType
		}
		if opts.storeURL != "" {
			c.Store.Settings["url"] = opts.storeURL
		}
		if opts.debug {
			c.Debug = true
		}
		if opts.noColor {
			c.NoColor = true
		}
	})
}
