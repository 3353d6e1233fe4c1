package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/CHris23132/Movienta-app/internal/services/calls"
	"github.com/CHris23132/Movienta-app/internal/services/ledger"
	"github.com/CHris23132/Movienta-app/internal/services/pages"
	"github.com/openai/openai-go/v2"
	"gorm.io/gorm"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 150
	defaultTemperature = 0.7

	// Scripted re-ask when the extractor finds no phone number: no model
	// call, no charge beyond the turn's debit.
	phoneReaskReply = "I didn't quite catch your phone number. Could you please share it again?"
)

// Reply is one assistant turn returned to the widget.
type Reply struct {
	Response      string `json:"response"`
	PhoneCaptured bool   `json:"phoneNumberCaptured"`
}

// Service drives the scripted sales conversation. Each turn is one billable
// action: the page owner is debited a credit before any model call, and a
// failed debit denies the turn entirely.
type Service struct {
	client          CompletionClient
	pages           *pages.Service
	calls           *calls.Service
	ledger          *ledger.Service
	model           string
	extractionModel string
	maxTokens       int64
	temperature     float64
}

func NewService(cfg models.ChatConfig, client CompletionClient, pagesSvc *pages.Service, callsSvc *calls.Service, ledgerSvc *ledger.Service) *Service {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	extractionModel := cfg.ExtractionModel
	if extractionModel == "" {
		extractionModel = model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return &Service{
		client:          client,
		pages:           pagesSvc,
		calls:           callsSvc,
		ledger:          ledgerSvc,
		model:           model,
		extractionModel: extractionModel,
		maxTokens:       maxTokens,
		temperature:     temperature,
	}
}

// Respond handles one visitor message on an active call.
func (s *Service) Respond(ctx context.Context, slug, callID, message string) (*Reply, error) {
	if message == "" || callID == "" || slug == "" {
		return nil, models.NewValidationError("message, call id and slug are required", nil)
	}

	page, err := s.pages.GetBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("landing page")
	}
	if err != nil {
		return nil, err
	}

	call, err := s.calls.Get(ctx, callID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("call")
	}
	if err != nil {
		return nil, err
	}
	if call.LandingPageID != page.ID {
		return nil, models.NewNotFoundError("call")
	}

	// The turn is billable: debit the page owner before anything is
	// recorded or sent to the model. Callers must not retry a failed
	// debit; a retried turn is a new billable action.
	if _, err := s.ledger.Debit(ctx, page.OwnerID, "api_call:"+page.ID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			return nil, models.NewPaymentRequiredError(err)
		}
		return nil, err
	}

	if err := s.calls.AppendMessage(ctx, callID, models.MessageRoleUser, message); err != nil {
		return nil, err
	}

	if call.PhoneNumber == "" {
		return s.respondCapturing(ctx, page, call, message)
	}
	return s.respondFollowUp(ctx, page, call, message)
}

// respondCapturing handles the phone-collection stage of the call.
func (s *Service) respondCapturing(ctx context.Context, page *models.LandingPage, call *models.Call, message string) (*Reply, error) {
	info := s.extractContactInfo(ctx, message)

	if info.Phone == "" {
		if err := s.calls.AppendMessage(ctx, call.ID, models.MessageRoleAssistant, phoneReaskReply); err != nil {
			return nil, err
		}
		return &Reply{Response: phoneReaskReply, PhoneCaptured: false}, nil
	}

	if err := s.calls.SetClientInfo(ctx, call.ID, info.Phone, info.Name); err != nil {
		return nil, err
	}

	system := capturedPrompt(page, info)
	params := s.completionParams([]openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(message),
	})

	response := s.complete(ctx, params, fallbackThanks(info.Name))
	if err := s.calls.AppendMessage(ctx, call.ID, models.MessageRoleAssistant, response); err != nil {
		return nil, err
	}

	return &Reply{Response: response, PhoneCaptured: true}, nil
}

// respondFollowUp handles the post-capture conversation with full
// transcript context.
func (s *Service) respondFollowUp(ctx context.Context, page *models.LandingPage, call *models.Call, message string) (*Reply, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(followUpPrompt(page, call)),
	}
	for _, msg := range call.Messages {
		switch msg.Role {
		case models.MessageRoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	response := s.complete(ctx, s.completionParams(messages), "I understand. Is there anything else you'd like to share?")
	if err := s.calls.AppendMessage(ctx, call.ID, models.MessageRoleAssistant, response); err != nil {
		return nil, err
	}

	return &Reply{Response: response, PhoneCaptured: true}, nil
}

func (s *Service) completionParams(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(s.model),
		Messages:    messages,
		MaxTokens:   openai.Int(s.maxTokens),
		Temperature: openai.Float(s.temperature),
	}
}

// complete runs the completion, substituting fallback when the model
// returns nothing usable. Provider errors are not surfaced to the visitor:
// the turn was already paid for and the canned line keeps the conversation
// alive.
func (s *Service) complete(ctx context.Context, params openai.ChatCompletionNewParams, fallback string) string {
	resp, err := s.client.Complete(ctx, params)
	if err != nil || resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return fallback
	}
	return resp.Choices[0].Message.Content
}

func capturedPrompt(page *models.LandingPage, info contactInfo) string {
	nameClause := ""
	thanksClause := ""
	if info.Name != "" {
		nameClause = fmt.Sprintf("name (%s) and ", info.Name)
		thanksClause = " using their name"
	}
	return fmt.Sprintf(
		"You are a helpful sales assistant for %s. The customer has just provided their %sphone number: %s. Thank them briefly%s and then ask a relevant follow-up question based on these instructions: %s. Keep responses concise and conversational.",
		page.BrandName, nameClause, info.Phone, thanksClause, page.CustomPrompt,
	)
}

func followUpPrompt(page *models.LandingPage, call *models.Call) string {
	customerInfo := fmt.Sprintf("the customer's phone number (%s)", call.PhoneNumber)
	nameClause := ""
	if call.ClientName != "" {
		customerInfo = fmt.Sprintf("the customer's name (%s) and phone number (%s)", call.ClientName, call.PhoneNumber)
		nameClause = "Use their name naturally in the conversation. "
	}
	return fmt.Sprintf(
		"You are a helpful sales assistant for %s. You already have %s. %sContinue the conversation based on these instructions: %s. Keep responses concise, helpful, and conversational. Gather relevant information about their needs.",
		page.BrandName, customerInfo, nameClause, page.CustomPrompt,
	)
}

func fallbackThanks(name string) string {
	if name != "" {
		return fmt.Sprintf("Thank you %s for providing your information. How can I help you further?", name)
	}
	return "Thank you for providing your information. How can I help you further?"
}
