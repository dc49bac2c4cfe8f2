package cmd

import (
	"fmt"

	"github.com/nfrund/homeplace/cmd/homeplace-cli/internal/terminal"
	"github.com/nfrund/homeplace/internal/app"
	"github.com/nfrund/homeplace/internal/chat"
	"github.com/nfrund/homeplace/internal/config"
	"github.com/nfrund/homeplace/internal/connection"
	"github.com/nfrund/homeplace/internal/logging"
	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		memberID string
		nick     string
		image    string
		maxMsgs  int
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the chat from the terminal",
		Long: `Signs in to the gateway (GATEWAY_URL) and opens a chat session.

Every line you type is sent as a message. Commands:
  /open   show the conversation
  /close  hide it
  /min    minimize or restore
  /who    show presence and connection state
  /quit   leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.New()
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if memberID != "" {
				cfg.MemberID = memberID
			}
			if nick != "" {
				cfg.MemberNick = nick
			}
			if cfg.MemberID == "" {
				return fmt.Errorf("a member id is required: set MEMBER_ID or pass --member")
			}

			a := app.New(cfg)
			defer a.Shutdown()

			ctx := cmd.Context()
			if err := a.SignIn(ctx, protocol.MemberData{ID: cfg.MemberID, Nick: cfg.MemberNick, Image: image}); err != nil {
				return err
			}

			manager, err := app.Invoke[*connection.Manager](a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			view := terminal.NewView(out)
			session := chat.NewSession(cfg.MemberID, chat.WithAlerter(view), chat.WithMaxMessages(maxMsgs))
			view.Attach(session)

			if err := session.Mount(ctx, manager); err != nil {
				return err
			}
			defer session.Unmount()

			fmt.Fprintf(out, "Connected as %s. Type /open to show the conversation, /quit to leave.\n", cfg.MemberID)
			return terminal.Run(ctx, session, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVar(&memberID, "member", "", "Member id (defaults to MEMBER_ID)")
	cmd.Flags().StringVar(&nick, "nick", "", "Display name (defaults to MEMBER_NICK)")
	cmd.Flags().StringVar(&image, "image", "", "Avatar URL")
	cmd.Flags().IntVar(&maxMsgs, "max-messages", 0, "Keep at most this many messages (0 keeps all)")
	return cmd
}
