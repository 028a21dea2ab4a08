package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Provider names
const (
	ProviderEcho   = "echo"
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
	ProviderDocker = "docker"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	dockerBaseURL = "http://localhost:12434/engines/llama.cpp/v1"
)

// Provider answers a question with a remote model
type Provider interface {
	Name() string
	Answer(ctx context.Context, question string) (string, error)
}

// headerTransport adds fixed headers to every request
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

func newHTTPClient(s Settings) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if len(s.Headers) > 0 {
		rt = &headerTransport{headers: s.Headers, next: rt}
	}
	return &http.Client{Timeout: s.Timeout, Transport: rt}
}

// httpProvider posts {"question"} to a custom endpoint and reads "answer"
// or "content" from the reply.
type httpProvider struct {
	url    string
	client *http.Client
}

func newHTTPProvider(s Settings) *httpProvider {
	return &httpProvider{url: s.BaseURL, client: newHTTPClient(s)}
}

func (p *httpProvider) Name() string { return ProviderHTTP }

func (p *httpProvider) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var out struct {
		Answer  string `json:"answer"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}
	if out.Answer != "" {
		return out.Answer, nil
	}
	if out.Content != "" {
		return out.Content, nil
	}
	return "", errors.New("response has neither answer nor content")
}

// chatProvider speaks the OpenAI chat completions protocol. The docker
// model runner exposes the same protocol without a key.
type chatProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newChatProvider(name string, s Settings) (*chatProvider, error) {
	base := s.BaseURL
	switch name {
	case ProviderOpenAI:
		if s.APIKey == "" {
			return nil, errors.New("openai provider requires api_key")
		}
		if base == "" {
			base = openAIBaseURL
		}
	case ProviderDocker:
		if base == "" {
			base = dockerBaseURL
		}
	}

	cfg := openai.DefaultConfig(s.APIKey)
	// go-openai appends the endpoint path itself
	cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(base, "/"), "/chat/completions")
	cfg.HTTPClient = newHTTPClient(s)

	return &chatProvider{name: name, model: s.Model, client: openai.NewClientWithConfig(cfg)}, nil
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Answer(ctx context.Context, question string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	answer := resp.Choices[0].Message.Content
	if answer == "" {
		return "", fmt.Errorf("%s choice has no message content", p.name)
	}
	return answer, nil
}
