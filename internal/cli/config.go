package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/config"
)

// configCommand inspects and edits the config file.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			printDetail("# %s", c.configPath())
			return toml.NewEncoder(stdout).Encode(cfg.Redacted())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, c.configPath())
		},
	})

	cmd.AddCommand(c.configSetAPICommand())
	return cmd
}

func (c *CLI) configSetAPICommand() *cobra.Command {
	var bearer string
	cmd := &cobra.Command{
		Use:   "set-api <base-url>",
		Short: "Set the query API base URL and, with --bearer, its credential",
		Long: `set-api stores the API base URL in the config file. --bearer sets the bearer
credential; --bearer "" clears it. The file is written with owner-only
permissions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath()
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			var token *string
			if cmd.Flags().Changed("bearer") {
				token = &bearer
			}
			cfg.SetAPI(args[0], token)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			printSuccess("API set to %s", cfg.API.Base)
			if token != nil && *token == "" {
				printDetail("Bearer credential cleared")
			} else if token != nil {
				printDetail("Bearer credential stored")
			}
			printFile(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&bearer, "bearer", "", "bearer credential")
	return cmd
}
