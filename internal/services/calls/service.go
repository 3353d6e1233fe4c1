package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages call sessions and their transcripts.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Call{}, &models.CallMessage{})
}

// Start opens a call against a landing page, optionally seeding the
// transcript with the assistant's opening line.
func (s *Service) Start(ctx context.Context, landingPageID, openingMessage string) (*models.Call, error) {
	if landingPageID == "" {
		return nil, fmt.Errorf("landing page id is required")
	}

	call := models.Call{
		ID:            uuid.NewString(),
		LandingPageID: landingPageID,
		Status:        models.CallStatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&call).Error; err != nil {
			return fmt.Errorf("failed to create call: %w", err)
		}
		if openingMessage != "" {
			msg := models.CallMessage{
				CallID:  call.ID,
				Role:    models.MessageRoleAssistant,
				Content: openingMessage,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to record opening message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, call.ID)
}

// Get returns the call with its transcript in order, or
// gorm.ErrRecordNotFound.
func (s *Service) Get(ctx context.Context, callID string) (*models.Call, error) {
	var call models.Call
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("call_messages.id ASC")
		}).
		Where("id = ?", callID).
		First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// AppendMessage adds one turn to the transcript.
func (s *Service) AppendMessage(ctx context.Context, callID string, role models.MessageRole, content string) error {
	msg := models.CallMessage{
		CallID:  callID,
		Role:    role,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to append call message: %w", err)
	}
	return nil
}

// SetClientInfo records the captured phone number and, when extracted, the
// visitor's name.
func (s *Service) SetClientInfo(ctx context.Context, callID, phoneNumber, clientName string) error {
	fields := map[string]any{"phone_number": phoneNumber}
	if clientName != "" {
		fields["client_name"] = clientName
	}

	res := s.db.WithContext(ctx).Model(&models.Call{}).
		Where("id = ?", callID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to set client info: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Complete closes the call.
func (s *Service) Complete(ctx context.Context, callID string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Call{}).
		Where("id = ?", callID).
		Updates(map[string]any{
			"status":   models.CallStatusCompleted,
			"ended_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete call: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByPage returns a page's calls, newest first, transcripts included.
func (s *Service) ListByPage(ctx context.Context, landingPageID string) ([]models.Call, error) {
	var result []models.Call
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("call_messages.id ASC")
		}).
		Where("landing_page_id = ?", landingPageID).
		Order("started_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return result, nil
}
