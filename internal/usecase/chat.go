package usecase

import (
	"context"

	"docaccess/internal/domain"
)

// AddChatMessage appends msg to the transcript of the current document.
// A missing id or timestamp is filled in.
func (a *App) AddChatMessage(ctx context.Context, msg domain.ChatMessage) domain.ChatMessage {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = a.deps.Now()
	}
	if msg.ID == "" {
		msg.ID = NewID(msg.Timestamp)
	}

	a.mu.Lock()
	a.chat = append(a.chat, msg)
	docID := ""
	if a.current != nil {
		docID = a.current.ID
	}
	a.mu.Unlock()

	a.publish(ctx, domain.EventChatMessage, domain.ChatEventPayload{DocumentID: docID, MessageID: msg.ID, Role: msg.Role})
	return msg
}

// ClearChat empties the transcript.
func (a *App) ClearChat(ctx context.Context) {
	a.mu.Lock()
	a.chat = nil
	a.mu.Unlock()

	a.publish(ctx, domain.EventChatCleared, domain.ChatEventPayload{})
}

// ChatMessages returns a copy of the transcript in order.
func (a *App) ChatMessages() []domain.ChatMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.ChatMessage, len(a.chat))
	copy(out, a.chat)
	return out
}

func (a *App) greeting() domain.ChatMessage {
	now := a.deps.Now()
	return domain.ChatMessage{
		ID:        NewID(now),
		Role:      domain.ChatRoleAssistant,
		Content:   domain.ChatGreeting,
		Timestamp: now,
	}
}
