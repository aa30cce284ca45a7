package classify

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

	"salesradar/internal/config"
	"salesradar/internal/model"
	"salesradar/internal/util"
)

const intentSystemPrompt = `You are an expert sales opportunity detector. Your job is to analyze text from social media and determine if it indicates a high-intent sales opportunity.

HIGH INTENT indicators include:
- User explicitly looking to buy a product
- User asking for product recommendations
- User complaining about problems that our products could solve
- User expressing frustration with current solutions

Analyze the text and respond with a JSON object:
{
  "isHighIntent": boolean,
  "intentScore": number (0-100),
  "topics": string[],
  "relevantProducts": string[],
  "urgency": "low" | "medium" | "high",
  "reasoning": string
}

Only classify as high intent if you're very confident the user is close to making a purchase decision.`

const responseSystemPrompt = `You are an expert at creating personalized, helpful ad responses for high-intent sales opportunities. Given a post/comment from a user and intent analysis, craft a response that:

1. Is conversational and not overtly salesy
2. Acknowledges their specific problem or need
3. Provides genuine value/information first
4. Subtly mentions our relevant product only if appropriate
5. Uses a natural, helpful tone (not corporate marketing speak)
6. Keeps responses concise (max 2-3 short paragraphs)

Your goal is to start a conversation, not close a sale immediately.`

// GroqClient talks to an OpenAI-shaped chat-completions API. It
// implements both Classifier and ReplyGenerator.
type GroqClient struct {
	client *http.Client
	apiURL string
	apiKey string
	model  string
}

func NewGroqClient(cfg config.ClassifierConfig) *GroqClient {
	apiURL := strings.TrimRight(cfg.BaseURL, "/")
	if apiURL == "" {
		apiURL = "https://api.groq.com/openai/v1"
	}
	to := cfg.Timeout
	if to == 0 {
		to = 60 * time.Second
	}
	return &GroqClient{
		client: util.NewHTTPClient(to),
		apiURL: apiURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *GroqClient) complete(ctx context.Context, system, user string) (string, error) {
	if c.model == "" {
		return "", errors.New("groq model is required")
	}
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("groq: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("groq: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *GroqClient) Classify(ctx context.Context, text string) (model.IntentVerdict, error) {
	content, err := c.complete(ctx, intentSystemPrompt, text)
	if err != nil {
		return model.IntentVerdict{}, err
	}
	return ParseVerdict(content)
}

func (c *GroqClient) GenerateReply(ctx context.Context, originalText string, platform model.Platform, verdict model.IntentVerdict) (string, error) {
	analysis, _ := json.Marshal(verdict)
	user := fmt.Sprintf("Original content: %s\n\nPlatform: %s\n\nIntent analysis: %s\n\nGenerate a helpful, non-pushy response that could be posted as a reply.",
		originalText, platform, analysis)
	return c.complete(ctx, responseSystemPrompt, user)
}

// ParseVerdict extracts the verdict JSON from a model reply, tolerating
// code fences and surrounding prose.
func ParseVerdict(content string) (model.IntentVerdict, error) {
	s := strings.TrimSpace(content)
	if i := strings.IndexByte(s, '{'); i >= 0 {
		if j := strings.LastIndexByte(s, '}'); j > i {
			s = s[i : j+1]
		}
	}
	var v model.IntentVerdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return model.IntentVerdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	if v.IntentScore < 0 {
		v.IntentScore = 0
	}
	if v.IntentScore > 100 {
		v.IntentScore = 100
	}
	if v.Urgency == "" {
		v.Urgency = model.UrgencyLow
	}
	return v, nil
}
