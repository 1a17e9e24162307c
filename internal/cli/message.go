package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/lobeboard/internal/bus"
	"github.com/soyeahso/lobeboard/internal/config"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send and list bus messages",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageListCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		toAgent string
		channel string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message over the corpus-callosum bus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")

			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}

			ctx, cancel := cmdContext()
			defer cancel()

			client := newBusClient(cfg)
			ok := client.SendMessage(ctx, bus.SendRequest{
				Content: content,
				From:    cfg.Agents.Local,
				ToAgent: toAgent,
				Channel: channel,
			})
			if !ok {
				return fmt.Errorf("message send failed")
			}
			fmt.Println("sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&toAgent, "to", "", "recipient agent (default broadcast)")
	cmd.Flags().StringVar(&channel, "channel", "", "bus channel")
	return cmd
}

func newMessageListCmd() *cobra.Command {
	var (
		channel    string
		limit      int
		unreadOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent bus messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}

			ctx, cancel := cmdContext()
			defer cancel()

			client := newBusClient(cfg)
			msgs := client.FetchMessages(ctx, channel, limit, unreadOnly)
			if len(msgs) == 0 {
				fmt.Println("no messages")
				return nil
			}
			for _, m := range msgs {
				marker := " "
				if !m.Read {
					marker = "*"
				}
				fmt.Printf("%s %s  %s → %s: %s\n",
					marker, m.Timestamp.Format("15:04:05"), m.From, m.To, m.Body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "bus channel")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum messages")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread messages")
	return cmd
}
