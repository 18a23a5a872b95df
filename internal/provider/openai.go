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

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI generates text through any OpenAI-compatible chat-completions
// endpoint. Paid, so it only runs when listed explicitly in the priority
// configuration.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a generator for an OpenAI-compatible API.
func NewOpenAI(baseURL, apiKey, model string, httpClient *http.Client) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Check verifies credentials are present; a bad key surfaces on the first
// call as a permanent failure.
func (o *OpenAI) Check(context.Context) error {
	if strings.TrimSpace(o.apiKey) == "" {
		return errors.New("openai api key is required")
	}
	return nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt to the /v1/chat/completions endpoint.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindPermanent, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindPermanent, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

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
			Err:      fmt.Errorf("openai returned %s: %s", resp.Status, strings.TrimSpace(string(data))),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: err}
	}
	if parsed.Error != nil {
		err := fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message)
		return "", &Error{Provider: o.Name(), Kind: KindOf(err), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: errors.New("no choices in response")}
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &Error{Provider: o.Name(), Kind: KindTransient, Err: errors.New("empty completion")}
	}

	return text, nil
}
