package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaModel = "llama3:8b"

// Ollama generates text through a local Ollama daemon. Free and unlimited,
// which is why it usually sits right after Gemini in the priority list.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates an Ollama-backed generator.
func NewOllama(baseURL, model string, httpClient *http.Client) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (o *Ollama) Name() string { return "ollama" }

// Check pings the daemon's tags endpoint to verify it is running.
func (o *Ollama) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama tags endpoint returned %s", resp.Status)
	}

	return nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends the prompt to the /api/generate endpoint.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindPermanent, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindPermanent, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Provider: o.Name(),
			Kind:     KindFromStatus(resp.StatusCode),
			Err:      fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(data))),
		}
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: err}
	}
	if parsed.Error != "" {
		return "", &Error{Provider: o.Name(), Kind: KindOf(errors.New(parsed.Error)), Err: errors.New(parsed.Error)}
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: errors.New("ollama returned empty response")}
	}

	return text, nil
}
