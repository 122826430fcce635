package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/id88/everysync/internal/config"
	"github.com/id88/everysync/internal/exclude"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and exclusion rules files",
	Long: `init creates the job config file (with an example source pair to edit)
and the exclusion rules file next to it. Existing files are left
untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag name is hardcoded

		if err := writeIfMissing(cmd, configPath, config.WriteDefault); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		rulesPath := config.Default().ExcludeFile
		if err := writeIfMissing(cmd, rulesPath, exclude.WriteDefault); err != nil {
			return fmt.Errorf("write rules: %w", err)
		}
		return nil
	},
}

func writeIfMissing(cmd *cobra.Command, path string, write func(string) error) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", path)
		return nil
	}
	if err := write(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
