package usecase

import (
	"context"
	"log/slog"
	"strings"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
	"docaccess/internal/infra/tracer"
)

// cannedAnswers are the demo-mode answers to the suggested questions.
var cannedAnswers = map[string]string{
	"Explain in simpler terms": "The main idea is that this document provides important information you need to know. The key points are written here to help you understand what you need to do.",
	"What should I do next?":   "The next steps depend on your specific situation. Based on the document, you should carefully review all the requirements and gather the necessary documents or information mentioned.",
	"Summarize in bullets":     "• Key Point 1: Important information from the document\n• Key Point 2: Action items you need to complete\n• Key Point 3: Timeline or deadlines to remember\n• Key Point 4: Where to go or contact for more help",
	"What does this mean?":     "This refers to the important terms and concepts mentioned in the document. The document explains these in formal language, and I can help break them down into simpler everyday language that is easier to understand.",
}

const defaultCannedAnswer = "I understand your question. Based on the document content, I can provide more context and explanation. In a production environment, this would be powered by AI to analyze the specific document and provide relevant answers."

// CannedAnswer returns the demo answer for question.
func CannedAnswer(question string) string {
	if a, ok := cannedAnswers[strings.TrimSpace(question)]; ok {
		return a
	}
	return defaultCannedAnswer
}

// ChatService answers questions about the current document.
type ChatService struct {
	app      *App
	services Services
	logger   *slog.Logger
}

// NewChatService creates a ChatService over app's current document.
func NewChatService(app *App, services Services, log *slog.Logger) *ChatService {
	return &ChatService{app: app, services: services, logger: logger.OrDiscard(log)}
}

// Ask appends question to the transcript, answers it and appends the answer.
// In demo mode answers are canned; otherwise the backend explains the
// document in light of the question. A failed answer leaves the question in
// the transcript.
func (c *ChatService) Ask(ctx context.Context, question string) (domain.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ChatMessage{}, domain.NewDomainError("ChatService.Ask", domain.ErrEmptyChatMessage, "")
	}
	doc, ok := c.app.CurrentDocument()
	if !ok {
		return domain.ChatMessage{}, domain.NewDomainError("ChatService.Ask", domain.ErrNoDocument, "")
	}

	ctx, span := tracer.StartSpan(ctx, "chat.ask")
	var err error
	defer func() { tracer.End(span, err) }()

	c.app.AddChatMessage(ctx, domain.ChatMessage{Role: domain.ChatRoleUser, Content: question})

	prefs := c.app.Preferences()
	var answer string
	if prefs.DemoMode || c.services.Live == nil {
		answer = CannedAnswer(question)
	} else {
		prompt := doc.OriginalText + "\n\nQuestion: " + question
		answer, err = c.services.Live.Explain(ctx, prompt, strings.ToLower(string(doc.Domain)))
		if err != nil {
			c.logger.Warn("chat answer failed", "document", doc.ID, "error", err)
			return domain.ChatMessage{}, domain.WrapOp("ChatService.Ask", err)
		}
	}

	return c.app.AddChatMessage(ctx, domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: answer}), nil
}
