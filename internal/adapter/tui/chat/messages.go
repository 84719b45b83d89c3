// Package chat implements the Bubble Tea document chat for docaccess.
package chat

import "docaccess/internal/domain"

// AnswerMsg carries the result of one question.
// Gen identifies the request so answers to cancelled questions are discarded.
type AnswerMsg struct {
	Answer domain.ChatMessage
	Err    error
	Gen    uint64
}

// ClearedMsg signals that the transcript was cleared in the store.
type ClearedMsg struct{}
