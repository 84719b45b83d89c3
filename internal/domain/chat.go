package domain

import "time"

// ChatRole identifies who authored a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single question or answer in the document chat.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatGreeting is the assistant's opening turn for every document.
const ChatGreeting = "Hello! Ask me any questions about the document. I can help explain terms, summarize sections, or provide more details."

// SuggestedQuestions are offered as one-tap prompts in the chat view.
var SuggestedQuestions = []string{
	"Explain in simpler terms",
	"What should I do next?",
	"Summarize in bullets",
	"What does this mean?",
}
