package retrieval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/siherrmann/hrrag/model"
)

// SystemInstruction is sent with every generation request.
const SystemInstruction = "You answer using ONLY the provided context. If unknown, say you don't know."

const contextSeparator = "\n\n---\n\n"

// BuildContext renders up to k results as source-labelled blocks and
// returns the cited sources in the same order.
func BuildContext(results []*model.RetrievalResult, k int) (string, []string) {
	if k > len(results) || k <= 0 {
		k = len(results)
	}

	blocks := make([]string, 0, k)
	citations := make([]string, 0, k)
	for _, r := range results[:k] {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", r.Record.Source, r.Record.Text))
		citations = append(citations, r.Record.Source)
	}
	return strings.Join(blocks, contextSeparator), citations
}

// BuildPrompt assembles the user prompt for question over the rendered context.
func BuildPrompt(question string, context string) string {
	var b strings.Builder
	b.WriteString("You are an HR assistant for an internal system.\n")
	b.WriteString("Answer the user's question using ONLY the following context. Be specific and extract exact details from the context.\n")
	b.WriteString("Do NOT include citations in brackets within your answer. The sources will be listed separately.\n")
	fmt.Fprintf(&b, "If the answer isn't contained in the context, say %q\n\n", model.UnknownAnswer)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Context:\n%s\n\n", context)
	b.WriteString("Instructions:\n")
	b.WriteString("- Extract specific numbers, dates, and details from the context\n")
	b.WriteString("- Provide direct answers with exact information when available\n")
	b.WriteString("- Don't say \"I don't have information\" if the details are clearly in the context\n")
	b.WriteString("- Write a clean answer without any [source: filename] citations in the text\n")
	return b.String()
}

// sentinelAnswer renders a generation failure as an answer string the caller can display.
func sentinelAnswer(err error) string {
	if errors.Is(err, model.ErrConfiguration) {
		return fmt.Sprintf("%s %v", model.LLMErrorMarker, err)
	}
	return fmt.Sprintf("%s API call failed: %v. Please check your API key and try again.", model.LLMErrorMarker, err)
}
