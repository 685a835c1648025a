// Package witai adapts the Wit.ai HTTP API to the voice recognizer contract.
package witai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ayusman/wandcast/internal/voice"
)

// Default API settings.
const (
	DefaultBaseURL = "https://api.wit.ai"
	DefaultVersion = "20240304"
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for the Client.
type Config struct {
	BaseURL string
	Token   string
	Version string
	Timeout time.Duration
}

// Client calls the Wit.ai message endpoint.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a Client. Empty fields take the package defaults.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Version == "" {
		config.Version = DefaultVersion
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// Message resolves the intent of an utterance. Only the top intent's name and
// confidence are read from the reply.
func (c *Client) Message(ctx context.Context, text string) (voice.Response, error) {
	q := url.Values{}
	q.Set("v", c.config.Version)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/message?"+q.Encode(), nil)
	if err != nil {
		return voice.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return voice.Response{}, fmt.Errorf("message request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return voice.Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return voice.Response{}, fmt.Errorf("wit.ai returned %d: %s", resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return voice.Response{}, fmt.Errorf("wit.ai returned invalid JSON")
	}

	out := voice.Response{
		Text:    gjson.GetBytes(body, "text").String(),
		Intents: []voice.Intent{},
	}
	top := gjson.GetBytes(body, "intents.0")
	if top.Exists() {
		out.Intents = append(out.Intents, voice.Intent{
			Name:       top.Get("name").String(),
			Confidence: top.Get("confidence").Float(),
		})
	}
	return out, nil
}
