package ollama

import (
	"context"
	"net/http"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const providerName = "ollama"

// Client talks to the Ollama generate API. It performs one HTTP round trip
// per call; timeouts come from the caller's context.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (c *Client) Name() string { return providerName }

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) Complete(ctx context.Context, req domain.ModelRequest) (string, error) {
	payload := generateRequest{
		Model:   c.model,
		System:  req.System,
		Prompt:  req.User,
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}

	var response generateResponse
	if err := c.postJSON(ctx, "/api/generate", payload, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
