package cli

import (
	"github.com/spf13/cobra"
)

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List available game modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Mode

			if err := client.Get("/api/v1/modes", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAbilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abilities",
		Short: "List the ability catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Ability

			if err := client.Get("/api/v1/abilities", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
