// Package llm wraps the chat-completion API used by the agent layer. All
// configured providers speak the OpenAI wire format; ollama is reached
// through its /v1 compatibility endpoint.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
)

const (
	requestTimeout = 120 * time.Second
	defaultRetries = 2
	maxImages      = 5
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// mimeByExt maps image extensions to their data-URL media type. Unknown
// extensions fall back to jpeg, which vision endpoints tolerate.
var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// Client issues chat completions with bounded retries.
type Client struct {
	cfg     config.Config
	log     *zap.Logger
	api     *openai.Client
	retries int
	sleep   func(time.Duration)
}

// New builds a Client for the configured provider and endpoint.
func New(cfg config.Config, log *zap.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.Provider == "ollama":
		apiCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/") + "/v1"
	case cfg.Endpoint != "":
		apiCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: requestTimeout}

	return &Client{
		cfg:     cfg,
		log:     log,
		api:     openai.NewClientWithConfig(apiCfg),
		retries: defaultRetries,
		sleep:   time.Sleep,
	}
}

// Complete sends the prompt (plus up to five inline images) and returns the
// model's text. Failures come back as a string starting with "Error:" so
// agents can surface them verbatim instead of aborting.
func (c *Client) Complete(ctx context.Context, prompt string, imagePaths []string) string {
	msg := c.buildMessage(prompt, imagePaths)
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: float32(c.cfg.Temperature),
	}

	for attempt := 0; attempt <= c.retries; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "Error: empty response from model"
			}
			content := strings.TrimSpace(resp.Choices[0].Message.Content)
			content = strings.TrimSpace(thinkTags.ReplaceAllString(content, ""))
			c.log.Debug("llm response", zap.String("head", head(content, 300)))
			return content
		}

		errMsg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(errMsg, "connect"):
			if attempt < c.retries {
				c.log.Warn("connection failed, retrying",
					zap.Int("attempt", attempt+1), zap.Error(err))
				c.sleep(2 * time.Second)
				continue
			}
			return fmt.Sprintf("Error: Cannot connect to %s", c.cfg.Provider)
		case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
			if attempt < c.retries {
				c.log.Warn("request timed out, retrying", zap.Int("attempt", attempt+1))
				continue
			}
			return "Error: Request timed out"
		default:
			c.log.Error("llm request failed", zap.Error(err))
			if attempt < c.retries {
				c.sleep(1 * time.Second)
				continue
			}
			return fmt.Sprintf("Error: %v", err)
		}
	}
	return "Error: Failed after retries"
}

func (c *Client) buildMessage(prompt string, imagePaths []string) openai.ChatCompletionMessage {
	if len(imagePaths) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	attached := 0
	for _, path := range imagePaths {
		if attached == maxImages {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			c.log.Warn("image not found, skipping", zap.String("path", path))
			continue
		}
		mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
		if !ok {
			mime = "image/jpeg"
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
			},
		})
		attached++
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
