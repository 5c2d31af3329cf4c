package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write persisted queue settings",
	Long: `Queue policy lives in the store and survives restarts:

  max_retries   default retry budget for new jobs (default 3)
  backoff_base  base of the retry backoff power, delay = base^attempt (default 2)
  job_timeout   per-job execution timeout in seconds (default 300)`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting, or all when no key is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			v, err := engine.Settings().Get(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		}
		all, err := engine.Settings().All(cmd.Context())
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, all[k])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Upsert a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.Settings().Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s=%s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
