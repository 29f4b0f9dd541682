// Package openai drives an already-running OpenAI-compatible vLLM server.
// The whole prompt batch goes out as one /v1/completions request.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// ErrModelNotServed is returned when the server does not list the requested model.
var ErrModelNotServed = errors.New("model not served")

// Client sends batched completion requests to an OpenAI-compatible inference server.
type Client struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. Requests carry no
// timeout; callers bound them through the context if they need to.
func NewClient(baseURL, apiKey, modelName string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		modelName:  modelName,
		httpClient: &http.Client{},
	}
}

type completionRequest struct {
	Model          string   `json:"model"`
	Prompt         []string `json:"prompt"`
	MaxTokens      int      `json:"max_tokens"`
	Temperature    float64  `json:"temperature"`
	Stop           []string `json:"stop,omitempty"`
	N              int      `json:"n,omitempty"`
	ReturnTokenIDs bool     `json:"return_token_ids"`
}

type completionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	TokenIDs     []int  `json:"token_ids"`
	FinishReason string `json:"finish_reason"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Generate sends every prompt in a single request and regroups the returned
// choices per prompt. With n candidates per prompt, choice index i belongs to
// prompt i/n.
func (c *Client) Generate(ctx context.Context, prompts []string, params launcher.SamplingParams) ([]launcher.RequestOutput, error) {
	n := params.N
	if n < 1 {
		n = 1
	}
	body := completionRequest{
		Model:          c.modelName,
		Prompt:         prompts,
		MaxTokens:      params.MaxTokens,
		Temperature:    params.Temperature,
		Stop:           params.Stop,
		N:              n,
		ReturnTokenIDs: true,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	var result completionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/completions", bodyBytes, &result); err != nil {
		return nil, err
	}

	outputs := make([]launcher.RequestOutput, len(prompts))
	for i, p := range prompts {
		outputs[i].Prompt = p
	}
	missingIDs := 0
	for _, ch := range result.Choices {
		idx := ch.Index / n
		if ch.Index < 0 || idx >= len(prompts) {
			return nil, fmt.Errorf("choice index %d out of range for %d prompts x %d candidates", ch.Index, len(prompts), n)
		}
		if ch.TokenIDs == nil {
			missingIDs++
		}
		outputs[idx].Outputs = append(outputs[idx].Outputs, launcher.CompletionOutput{
			Text:         ch.Text,
			TokenIDs:     ch.TokenIDs,
			FinishReason: ch.FinishReason,
		})
	}
	if missingIDs > 0 {
		logrus.Warnf("%d of %d choices carried no token_ids (server reports %d completion tokens); upgrade vLLM for return_token_ids support",
			missingIDs, len(result.Choices), result.Usage.CompletionTokens)
	}
	return outputs, nil
}

// ServedModels lists the model ids the server reports on /v1/models.
func (c *Client) ServedModels(ctx context.Context) ([]string, error) {
	var result modelsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/models", nil, &result); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// CheckModel fails with ErrModelNotServed unless the server lists the client's model.
func (c *Client) CheckModel(ctx context.Context) error {
	ids, err := c.ServedModels(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == c.modelName {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (server has %s)", ErrModelNotServed, c.modelName, strings.Join(ids, ", "))
}

// Close is a no-op; the server's lifecycle is not owned by the client.
func (c *Client) Close() error {
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, into any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}
