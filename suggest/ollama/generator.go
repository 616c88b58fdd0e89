package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantrypal"
	"pantrypal/suggest"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// Generator implements suggest.Generator against a local Ollama server.
type Generator struct {
	endpoint   string
	model      string
	httpClient pantrypal.HTTPClient
	options    options
}

var _ suggest.Generator = (*Generator)(nil)

type Opts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   pantrypal.HTTPClient
}

func NewGenerator(opts Opts) (*Generator, error) {
	if strings.TrimSpace(opts.BaseEndpoint) == "" {
		return nil, fmt.Errorf("missing Ollama endpoint")
	}
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("missing Ollama model")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Generator{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.7,
			TopP:          0.95,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Generate sends the prompt as a system and a user message and returns the assistant content
// verbatim.
func (g *Generator) Generate(ctx context.Context, prompt suggest.Prompt) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "kind", prompt.Kind, "model", g.model)

	reqBody := wireRequest{
		Model: g.model,
		Messages: []wireMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Stream:  false,
		Options: g.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if wr.Error != "" {
		return "", fmt.Errorf("ollama: %s", wr.Error)
	}

	slog.Info("LLM_CLIENT: Ollama invoke succeeded", "content_len", len(wr.Message.Content))
	return wr.Message.Content, nil
}
