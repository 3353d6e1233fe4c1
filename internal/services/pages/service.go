package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/CHris23132/Movienta-app/internal/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrSlugTaken is returned when a landing page's brand name slugifies to a
// slug that already exists.
var ErrSlugTaken = errors.New("slug already taken")

const defaultCacheTTL = 5 * time.Minute

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Service manages landing pages. Slug lookups are the widget's hot path, so
// they go through an optional Redis read-through cache; writes invalidate.
type Service struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Service{db: db, cache: cache, cacheTTL: cacheTTL}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.LandingPage{})
}

// CreateParams carries the owner-supplied page content.
type CreateParams struct {
	OwnerID      string
	BrandName    string
	HeroTitle    string
	HeroSubtitle string
	CustomPrompt string
	ThemeColor   string
}

// Create stores a new landing page under a slug derived from the brand
// name. A colliding slug fails with ErrSlugTaken rather than silently
// repointing an existing page.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.LandingPage, error) {
	if params.OwnerID == "" || params.BrandName == "" {
		return nil, fmt.Errorf("owner id and brand name are required")
	}

	slug := Slugify(params.BrandName)
	if slug == "" {
		return nil, fmt.Errorf("brand name %q produces an empty slug", params.BrandName)
	}

	page := models.LandingPage{
		ID:           uuid.NewString(),
		OwnerID:      params.OwnerID,
		Slug:         slug,
		BrandName:    params.BrandName,
		HeroTitle:    params.HeroTitle,
		HeroSubtitle: params.HeroSubtitle,
		CustomPrompt: params.CustomPrompt,
		ThemeColor:   params.ThemeColor,
	}

	if err := s.db.WithContext(ctx).Create(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
		}
		return nil, fmt.Errorf("failed to create landing page: %w", err)
	}

	return &page, nil
}

// GetBySlug resolves the public widget identifier. Returns
// gorm.ErrRecordNotFound for unknown slugs.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.LandingPage, error) {
	if cached := s.cacheGet(ctx, slug); cached != nil {
		return cached, nil
	}

	var page models.LandingPage
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&page).Error; err != nil {
		return nil, err
	}

	s.cacheSet(ctx, &page)
	return &page, nil
}

// GetByID returns the page or gorm.ErrRecordNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*models.LandingPage, error) {
	var page models.LandingPage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

// ListByOwner returns the owner's pages, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.LandingPage, error) {
	var pages []models.LandingPage
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list landing pages: %w", err)
	}
	return pages, nil
}

// Update applies the non-nil fields of update to the page, if ownerID owns
// it. The slug never changes after creation: published widget embeds link
// to it.
func (s *Service) Update(ctx context.Context, id, ownerID string, update models.LandingPageUpdate) (*models.LandingPage, error) {
	page, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}

	fields := map[string]any{}
	if update.BrandName != nil {
		fields["brand_name"] = *update.BrandName
	}
	if update.HeroTitle != nil {
		fields["hero_title"] = *update.HeroTitle
	}
	if update.HeroSubtitle != nil {
		fields["hero_subtitle"] = *update.HeroSubtitle
	}
	if update.CustomPrompt != nil {
		fields["custom_prompt"] = *update.CustomPrompt
	}
	if update.ThemeColor != nil {
		fields["theme_color"] = *update.ThemeColor
	}
	if len(fields) == 0 {
		return page, nil
	}

	if err := s.db.WithContext(ctx).Model(page).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update landing page: %w", err)
	}

	s.cacheInvalidate(ctx, page.Slug)
	return s.GetByID(ctx, id)
}

// Slugify derives the public URL slug from a brand name.
func Slugify(brandName string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(brandName), "-")
	return strings.Trim(slug, "-")
}

func cacheKey(slug string) string {
	return "page:slug:" + slug
}

func (s *Service) cacheGet(ctx context.Context, slug string) *models.LandingPage {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cacheKey(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			fiberlog.Debugf("page cache read failed for %s: %v", slug, err)
		}
		return nil
	}

	var page models.LandingPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil
	}
	return &page
}

func (s *Service) cacheSet(ctx context.Context, page *models.LandingPage) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(page.Slug), data, s.cacheTTL).Err(); err != nil {
		fiberlog.Debugf("page cache write failed for %s: %v", page.Slug, err)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(slug)).Err(); err != nil {
		fiberlog.Debugf("page cache invalidation failed for %s: %v", slug, err)
	}
}
