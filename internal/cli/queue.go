package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Matchmaking commands",
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())
	cmd.AddCommand(newQueueRoomCmd())
	cmd.AddCommand(newQueueReadyCmd())
	cmd.AddCommand(newQueueDeclineCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the matchmaking queue for a mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"mode": mode}
			var result Room

			if err := client.Post("/api/v1/rooms/join", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "classic", "Game mode to queue for")

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the current room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/rooms/leave", nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("left room")
			return nil
		},
	}
}

func newQueueRoomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room <id>",
		Short: "Show a room's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newQueueReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready <room-id>",
		Short: "Confirm the ready check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/rooms/%s/ready", args[0])
			if err := client.Post(path, nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("ready")
			return nil
		},
	}
}

func newQueueDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <room-id>",
		Short: "Decline the ready check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/rooms/%s/decline", args[0])
			if err := client.Post(path, nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("declined")
			return nil
		},
	}
}
