package chat

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
)

const extractionSystemPrompt = `You are a data extraction assistant. Extract the person's name and phone number from the user's message.
Rules:
- Extract ONLY the person's name (first and last name if provided)
- Extract ONLY the phone number (digits only, no formatting)
- Ignore all filler words, greetings, and conversational phrases
- If name is not clearly provided, return null for name
- If phone is not clearly provided, return null for phone
- Names should be properly capitalized
- Phone numbers should be digits only (remove all dashes, spaces, parentheses)

Respond ONLY with valid JSON in this exact format:
{"name": "First Last", "phone": "1234567890"}
or
{"name": null, "phone": "1234567890"}
or
{"name": "First Last", "phone": null}
or
{"name": null, "phone": null}

Do not include any other text, explanation, or markdown formatting.`

var (
	phonePattern    = regexp.MustCompile(`(\d{3}[-.\s]?\d{3}[-.\s]?\d{4})|(\d{10})`)
	nonDigitPattern = regexp.MustCompile(`\D`)
)

type contactInfo struct {
	Name  string
	Phone string
}

// extractContactInfo pulls a name and phone number out of free-form visitor
// text via a JSON-only completion call. On extractor failure it falls back
// to a phone-number regex so a clearly dictated number is never dropped.
func (s *Service) extractContactInfo(ctx context.Context, text string) contactInfo {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.extractionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractionSystemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(100),
	}

	resp, err := s.client.Complete(ctx, params)
	if err != nil || resp == nil || len(resp.Choices) == 0 {
		fiberlog.Warnf("contact extraction failed, falling back to regex: %v", err)
		return regexContactInfo(text)
	}

	var parsed struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		fiberlog.Warnf("contact extraction returned malformed JSON, falling back to regex: %v", err)
		return regexContactInfo(text)
	}

	info := contactInfo{}
	if parsed.Name != nil {
		info.Name = strings.TrimSpace(*parsed.Name)
	}
	if parsed.Phone != nil {
		info.Phone = nonDigitPattern.ReplaceAllString(*parsed.Phone, "")
	}
	return info
}

func regexContactInfo(text string) contactInfo {
	match := phonePattern.FindString(text)
	if match == "" {
		return contactInfo{}
	}
	return contactInfo{Phone: nonDigitPattern.ReplaceAllString(match, "")}
}
