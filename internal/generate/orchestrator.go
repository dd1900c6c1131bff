package generate

import (
	"context"
	"fmt"

	"github.com/docchat/docchat/internal/retrieve"
)

// systemPrompt pins the model to the retrieved context. Kept strict: the
// model must admit when the context does not answer the question.
const systemPrompt = `You are a helpful AI assistant. Answer the user's question using only the provided context from their documents. Be concise and accurate. If the context does not contain the information needed to answer, say so explicitly instead of guessing.`

// InsufficientAnswer is the graceful reply when retrieval finds nothing.
const InsufficientAnswer = "I don't have enough information in the uploaded documents to answer that."

// LLM is the slice of the chat client the orchestrator needs.
type LLM interface {
	Complete(ctx context.Context, messages []Turn) (string, error)
	Stream(ctx context.Context, messages []Turn) (<-chan string, <-chan error)
}

// Orchestrator assembles prompts from retrieved context, caller-supplied
// history and the query, and drives the language model.
type Orchestrator struct {
	llm LLM
}

// NewOrchestrator creates a generation orchestrator.
func NewOrchestrator(llm LLM) *Orchestrator {
	return &Orchestrator{llm: llm}
}

// Answer returns the complete answer as one unit. An empty context bundle
// short-circuits to the insufficient-information answer without touching
// the model.
func (o *Orchestrator) Answer(ctx context.Context, query string, bundle retrieve.ContextBundle, history []Turn) (string, error) {
	if bundle.Empty() {
		return InsufficientAnswer, nil
	}
	return o.llm.Complete(ctx, buildMessages(query, bundle, history))
}

// AnswerStream streams the answer fragment by fragment. The fragment
// channel closes after the last fragment; the error channel carries at most
// one terminal error. Partial text already delivered stays with the
// consumer — nothing is buffered for replay.
func (o *Orchestrator) AnswerStream(ctx context.Context, query string, bundle retrieve.ContextBundle, history []Turn) (<-chan string, <-chan error) {
	if bundle.Empty() {
		fragments := make(chan string, 1)
		errc := make(chan error)
		fragments <- InsufficientAnswer
		close(fragments)
		close(errc)
		return fragments, errc
	}
	return o.llm.Stream(ctx, buildMessages(query, bundle, history))
}

func buildMessages(query string, bundle retrieve.ContextBundle, history []Turn) []Turn {
	messages := make([]Turn, 0, len(history)+2)
	messages = append(messages, Turn{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Turn{
		Role:    "user",
		Content: fmt.Sprintf("Documents:\n%s\n\nQuestion: %s", bundle.Text, query),
	})
	return messages
}
