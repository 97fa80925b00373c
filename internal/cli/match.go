package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchParityCmd())
	cmd.AddCommand(newMatchRollCmd())
	cmd.AddCommand(newMatchBankCmd())
	cmd.AddCommand(newMatchAbilityCmd())
	cmd.AddCommand(newMatchForfeitCmd())

	return cmd
}

// nextSeq fetches the match to derive the next command sequence number.
// Passing --seq skips the extra round trip.
func nextSeq(matchID string, explicit int64) (int64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	var m Match
	if err := client.Get("/api/v1/matches/"+matchID, &m); err != nil {
		return 0, err
	}
	return m.Seq + 1, nil
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a match's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			if err := client.Get("/api/v1/matches/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchParityCmd() *cobra.Command {
	var seq int64

	cmd := &cobra.Command{
		Use:   "parity <id> <odd|even>",
		Short: "Call parity as the turn decider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nextSeq(args[0], seq)
			if err != nil {
				return err
			}

			req := map[string]any{"parity": args[1], "seq": s}
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/parity", args[0])
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seq, "seq", 0, "Command sequence number (fetched if omitted)")

	return cmd
}

func newMatchRollCmd() *cobra.Command {
	var seq int64

	cmd := &cobra.Command{
		Use:   "roll <id>",
		Short: "Roll the dice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nextSeq(args[0], seq)
			if err != nil {
				return err
			}

			req := map[string]any{"seq": s}
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/roll", args[0])
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seq, "seq", 0, "Command sequence number (fetched if omitted)")

	return cmd
}

func newMatchBankCmd() *cobra.Command {
	var seq int64

	cmd := &cobra.Command{
		Use:   "bank <id>",
		Short: "Bank the current turn-score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nextSeq(args[0], seq)
			if err != nil {
				return err
			}

			req := map[string]any{"seq": s}
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/bank", args[0])
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seq, "seq", 0, "Command sequence number (fetched if omitted)")

	return cmd
}

func newMatchAbilityCmd() *cobra.Command {
	var seq int64
	var target string

	cmd := &cobra.Command{
		Use:   "ability <id> <ability-id>",
		Short: "Use an ability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nextSeq(args[0], seq)
			if err != nil {
				return err
			}

			req := map[string]any{"ability_id": args[1], "seq": s}
			if target != "" {
				req["target_id"] = target
			}
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/abilities", args[0])
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seq, "seq", 0, "Command sequence number (fetched if omitted)")
	cmd.Flags().StringVar(&target, "target", "", "Target player id (resolved from the ability when omitted)")

	return cmd
}

func newMatchForfeitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forfeit <id>",
		Short: "Forfeit the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/forfeit", args[0])
			if err := client.Post(path, nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
