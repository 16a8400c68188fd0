package rag

import (
	"strings"
)

const answerInstructions = `You are a technical support assistant for a product manual. Answer STRICTLY from the context below.

Rules:
- Use ONLY information present in the context. Do not add outside knowledge.
- If the context does not fully answer the question, ask ONE short follow-up question instead of guessing.
- Keep the answer concise and concrete. Quote exact values, commands, and option names from the context.
- Never invent section numbers, settings, or steps that are not in the context.`

// BuildPrompt assembles the generation prompt: fixed instructions, the
// retrieved context, then the user's question. The previous answer, when
// present, is already folded into the context by the caller.
func BuildPrompt(contextText, query string) string {
	var sb strings.Builder
	sb.WriteString(answerInstructions)
	sb.WriteString("\n\nCONTEXT:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQUESTION:\n")
	sb.WriteString(query)
	return sb.String()
}
