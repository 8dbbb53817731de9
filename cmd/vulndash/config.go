package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/userconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vulndash configuration",
	Long: `Manage persistent user configuration.

Configuration is stored in ~/.vulndash/config.json and may contain comments.
VULNDASH_API_URL overrides api_url.

Examples:
  vulndash config get api_url
  vulndash config set api_url http://scanner.internal:8000
  vulndash config set poll_interval 5s
  vulndash config list`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Configuration:")
		fmt.Println("--------------")
		for _, k := range userconfig.Keys() {
			val, err := userconfig.Get(k)
			if err != nil {
				continue
			}
			if val == "" {
				val = "(unset)"
			}
			fmt.Printf("%-18s : %s\n", k, val)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get a configuration value",
	Args:      cobra.ExactArgs(1),
	ValidArgs: userconfig.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := userconfig.Get(args[0])
		if err != nil {
			return err
		}
		if val == "" {
			fmt.Println("(unset)")
		} else {
			fmt.Println(val)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Example: `  vulndash config set poll_attempts 60
  vulndash config set log_level debug`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := userconfig.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✅ Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
