package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// Generator turns a prompt into prose.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Configured() bool
}

// GenerateRequest is one text-generation call.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
	Temperature       float64
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	timeout  time.Duration
}

func NewGeminiClient(apiKey, model, endpoint string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
	}
}

func (g *GeminiClient) Configured() bool { return g != nil && g.apiKey != "" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate posts the request and concatenates the text parts of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !g.Configured() {
		return "", errors.New("gemini api key is not configured")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	body.GenerationConfig.Temperature = req.Temperature

	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", errors.Wrap(context.DeadlineExceeded, "gemini request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	agent := fiber.Post(url).
		Set("x-goog-api-key", g.apiKey).
		JSON(body).
		Timeout(timeout)

	code, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", errors.Wrap(errs[0], "gemini request")
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrapf(err, "decoding gemini response (status %d)", code)
	}
	if code != fiber.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", errors.Errorf("gemini returned status %d: %s", code, msg)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}
