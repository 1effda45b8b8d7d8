package rag

import "strings"

const systemInstruction = `You are a helpful AI assistant for a landing page.
Answer the user's question based on the provided context and conversation history.
If the answer is not in the context, say "I don't have enough information to answer that."`

// AssemblePrompt renders the full model prompt from the query, the retrieved
// context and the caller-supplied history. Block order is fixed: system
// instruction, history (omitted entirely when empty), context, question.
// The function is pure; identical inputs produce byte-identical output.
func AssemblePrompt(query, contextText string, history []ConversationTurn) string {
	var b strings.Builder

	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Previous conversation history:\n")
		for _, turn := range history {
			switch turn.Role {
			case RoleUser:
				b.WriteString("User: ")
			case RoleAssistant:
				b.WriteString("Assistant: ")
			default:
				// Unknown roles are attributed to the model side.
				b.WriteString("Assistant: ")
			}
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n")

	return b.String()
}
