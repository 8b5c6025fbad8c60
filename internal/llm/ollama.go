package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fund-report-rag/internal/models"

	"github.com/ollama/ollama/api"
)

// OllamaLLM handles chat generation against the Ollama API.
type OllamaLLM struct {
	client *api.Client
	model  string
}

// NewOllamaLLM creates a generation client against the given Ollama host.
// An empty host falls back to the local default.
func NewOllamaLLM(host, model string) (*OllamaLLM, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	return &OllamaLLM{
		client: api.NewClient(hostURL, http.DefaultClient),
		model:  model,
	}, nil
}

// GeneratePrompt assembles a fund-analysis prompt from retrieved context,
// computed metrics, and the prior conversation turns.
func (o *OllamaLLM) GeneratePrompt(query string, contexts []models.SearchResult, metrics *models.Metrics, history []models.ChatMessage) string {
	var b strings.Builder

	b.WriteString("You are a fund performance analyst assistant. ")
	b.WriteString("Answer questions about private fund capital calls, distributions, and performance metrics using the provided context. ")
	b.WriteString("Quote figures exactly as they appear in the context or metrics. ")
	b.WriteString("If the answer is not in the context, say you do not have enough information from the fund documents.\n\n")

	if metrics != nil {
		b.WriteString("Computed fund metrics:\n")
		b.WriteString(formatMetrics(metrics))
		b.WriteString("\n")
	}

	if len(contexts) > 0 {
		b.WriteString("Context from fund documents:\n")
		for i, ctx := range contexts {
			fmt.Fprintf(&b, "Context %d [Document: %d, Page: %d", i+1, ctx.DocumentID, ctx.Metadata.Page)
			if ctx.Metadata.Section != "" {
				fmt.Fprintf(&b, ", Section: %s", ctx.Metadata.Section)
			}
			b.WriteString("]:\n")
			b.WriteString(ctx.Content)
			b.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: " + query + "\n\n")
	b.WriteString("Answer: ")

	return b.String()
}

func formatMetrics(m *models.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Paid-in capital (PIC): %.2f\n", m.PIC)
	fmt.Fprintf(&b, "- Total distributions: %.2f\n", m.TotalDistributions)
	fmt.Fprintf(&b, "- DPI: %.4f\n", m.DPI)
	if m.IRR != nil {
		fmt.Fprintf(&b, "- IRR: %.4f\n", *m.IRR)
	}
	if m.NAV != nil {
		fmt.Fprintf(&b, "- NAV: %.2f\n", *m.NAV)
	}
	if m.TVPI != nil {
		fmt.Fprintf(&b, "- TVPI: %.4f\n", *m.TVPI)
	}
	if m.RVPI != nil {
		fmt.Fprintf(&b, "- RVPI: %.4f\n", *m.RVPI)
	}
	return b.String()
}

// GenerateResponse streams a completion for the prompt and returns the
// concatenated text.
func (o *OllamaLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 1024,
		},
	}

	var responseBuilder strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// Answer generates an answer for the query from context, metrics, and
// conversation history.
func (o *OllamaLLM) Answer(ctx context.Context, query string, contexts []models.SearchResult, metrics *models.Metrics, history []models.ChatMessage) (string, error) {
	prompt := o.GeneratePrompt(query, contexts, metrics, history)
	answer, err := o.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("answer query: %w", err)
	}
	return answer, nil
}
