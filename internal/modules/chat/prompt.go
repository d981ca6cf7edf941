package chat

import (
	"strings"

	"github.com/yungbote/pitwall/internal/domain/conversation"
	"github.com/yungbote/pitwall/internal/modules/retrieval"
	"github.com/yungbote/pitwall/internal/platform/openai"
)

// FallbackAnswer is returned when nothing relevant is found, and the model is
// told to use it when the context is not enough.
const FallbackAnswer = "I don't know."

const systemTemplate = `You are an assistant designed to answer questions specifically about Formula 1 racing cars, drivers, constructors, races, and related topics based only on the context provided below.
Please use the relevant documents provided in the "Context" section to answer the question in the "Question" section. If the information is not available in the context, respond with: "` + FallbackAnswer + `"

Context:
{context}

Question: {input}

Answer:`

// SystemPrompt fills the template. Chunks are joined with newlines in the
// order given.
func SystemPrompt(results []retrieval.Result, query string) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Chunk != nil {
			texts = append(texts, r.Chunk.Text)
		}
	}
	// Single pass, so a chunk containing "{input}" is left alone.
	return strings.NewReplacer(
		"{context}", strings.Join(texts, "\n"),
		"{input}", query,
	).Replace(systemTemplate)
}

// BuildMessages lays out history (oldest first), the system prompt and the
// query as the final user message.
func BuildMessages(history []*conversation.Turn, results []retrieval.Result, query string) []openai.Message {
	msgs := make([]openai.Message, 0, len(history)+2)
	for _, t := range history {
		if t == nil || !conversation.ValidRole(t.Role) {
			continue
		}
		msgs = append(msgs, openai.Message{Role: t.Role, Content: t.Message})
	}
	msgs = append(msgs,
		openai.Message{Role: "system", Content: SystemPrompt(results, query)},
		openai.Message{Role: "user", Content: query},
	)
	return msgs
}
