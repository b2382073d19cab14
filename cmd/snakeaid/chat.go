package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/snakeaid/backend/internal/tui"
	"github.com/zhouzirui/snakeaid/backend/pkg/logger"
)

func newChatCommand(opts *rootOptions) *cobra.Command {
	var showLogs bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the responder from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !showLogs {
				logger.Install(logger.New(io.Discard, "disabled", "json"))
			}

			model := tui.New(cmd.Context(), newChatService(opts.cfg.Relay), tui.GlamourRenderer)
			defer model.Close()

			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&showLogs, "show-logs", false, "keep logging to stderr while the chat screen is open")
	return cmd
}
