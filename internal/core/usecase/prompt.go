package usecase

import (
	"fmt"
	"strings"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

const answerSystemMessage = `You are a legal assistant for Indonesian laws and regulations.
Answer only from the numbered context passages.
Cite every claim with bracket markers like [1] that refer to context numbers.
If the context does not cover the question, say so directly.
Answer in the same language as the question.`

const citedSourcesInstruction = `After the answer, append a JSON object on its own line listing the context numbers you actually used, for example: {"cited_sources": [1, 3]}. Do not mention this object in the answer itself.`

const refusalAnswer = "Maaf, saya tidak menemukan peraturan yang relevan dengan pertanyaan Anda dalam basis data."

func buildAnswerPrompt(question, rawContext string, history []domain.HistoryTurn) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Context:\n%s\nQuestion:\n%s\n", rawContext, question)
	return b.String()
}

func answerSystem(withCitedSources bool) string {
	if !withCitedSources {
		return answerSystemMessage
	}
	return answerSystemMessage + "\n" + citedSourcesInstruction
}
