// Package responder answers health questions for the chat screen: canned
// replies for greetings, retrieval from a question/answer knowledge base,
// and a language model that writes the structured answer.
package responder

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Canned replies.
const (
	GreetingReply   = "👋 Hello! How can I help you today?"
	RestrictedReply = "❌ Sorry, I don't have enough information to answer that."
)

// TopK is how many documents are handed to the model.
const TopK = 2

// minAnswerLen is the shortest formatted answer worth returning, in characters.
const minAnswerLen = 20

var greetings = []string{"hi", "hello", "hey", "good morning", "good evening", "good afternoon", "how are you"}

const promptTemplate = `You are a healthcare assistant chatbot.
Always answer in a clear, **structured**, and easy-to-read format.

---

If the question is about a **disease or condition**:
**Overview:** Short and simple explanation.
**Common Symptoms:** Use bullet points (•).
**Advice:** Give one simple health recommendation.

If the question is about **treatment or cure**:
**Overview:** Brief explanation.
**Treatment Options:** Use bullet points (•).
**Advice:** Recommend seeing a doctor for personalized care.

If the question is about **causes or prevention**:
**Overview:** Short explanation.
**Causes / Prevention Tips:** Bullet points (•).
**Advice:** End with one easy health tip.

If it's a **general meaning or definition**:
**Overview:** One-line definition.
**Key Points:** Bullet points for clarity.
**Advice:** Conclude with a short awareness note.

---

Context:
%s

Question:
%s

Answer:
`

// Retriever finds documents relevant to a query.
type Retriever interface {
	Retrieve(query string, k int) []Document
}

// LanguageModel completes a prompt.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service turns a user query into a chat reply.
type Service struct {
	retriever Retriever
	model     LanguageModel
	log       *zap.Logger
}

// NewService builds a Service. A nil log disables logging.
func NewService(retriever Retriever, model LanguageModel, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{retriever: retriever, model: model, log: log}
}

// Answer replies to query. Only model failures are returned as errors;
// a query the knowledge base cannot support gets RestrictedReply.
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)

	if isGreeting(query) {
		return GreetingReply, nil
	}

	docs := s.retriever.Retrieve(query, TopK)
	if len(docs) == 0 {
		s.log.Debug("no relevant documents", zap.String("query", query))
		return RestrictedReply, nil
	}

	raw, err := s.model.Complete(ctx, BuildPrompt(docs, query))
	if err != nil {
		return "", fmt.Errorf("complete prompt: %w", err)
	}

	answer := FormatResponse(strings.TrimSpace(raw))
	if utf8.RuneCountInString(answer) < minAnswerLen {
		return RestrictedReply, nil
	}
	return answer, nil
}

// BuildPrompt fills the structured healthcare prompt with the documents
// and the question.
func BuildPrompt(docs []Document, question string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content()
	}
	return fmt.Sprintf(promptTemplate, strings.Join(parts, "\n\n"), question)
}

func isGreeting(query string) bool {
	q := strings.ToLower(query)
	for _, g := range greetings {
		if strings.HasPrefix(q, g) {
			return true
		}
	}
	return false
}
