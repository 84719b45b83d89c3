package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// askCmd asks question in a background goroutine with a cancellable context.
func askCmd(ctx context.Context, asker Asker, question string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		answer, err := asker.Ask(ctx, question)
		return AnswerMsg{Answer: answer, Err: err, Gen: gen}
	}
}

func clearCmd(ctx context.Context, t Transcript) tea.Cmd {
	return func() tea.Msg {
		t.ClearChat(ctx)
		return ClearedMsg{}
	}
}
