package api

import (
	"errors"

	"github.com/CHris23132/Movienta-app/internal/models"
	"github.com/CHris23132/Movienta-app/internal/services/calls"
	"github.com/CHris23132/Movienta-app/internal/services/middleware"
	"github.com/CHris23132/Movienta-app/internal/services/pages"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PagesHandler struct {
	pages *pages.Service
	calls *calls.Service
}

func NewPagesHandler(pagesService *pages.Service, callsService *calls.Service) *PagesHandler {
	return &PagesHandler{
		pages: pagesService,
		calls: callsService,
	}
}

// CreatePageRequest is the owner-supplied page content.
type CreatePageRequest struct {
	BrandName    string `json:"brand_name"`
	HeroTitle    string `json:"hero_title"`
	HeroSubtitle string `json:"hero_subtitle"`
	CustomPrompt string `json:"custom_prompt"`
	ThemeColor   string `json:"theme_color,omitempty"`
}

// CreatePage creates a landing page for the authenticated owner.
func (h *PagesHandler) CreatePage(c *fiber.Ctx) error {
	var req CreatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.BrandName == "" || req.HeroTitle == "" || req.HeroSubtitle == "" || req.CustomPrompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_name, hero_title, hero_subtitle and custom_prompt are required",
		})
	}

	page, err := h.pages.Create(c.Context(), pages.CreateParams{
		OwnerID:      middleware.AccountID(c),
		BrandName:    req.BrandName,
		HeroTitle:    req.HeroTitle,
		HeroSubtitle: req.HeroSubtitle,
		CustomPrompt: req.CustomPrompt,
		ThemeColor:   req.ThemeColor,
	})
	if err != nil {
		if errors.Is(err, pages.ErrSlugTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A page with this brand name already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create landing page",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(page)
}

// ListPages returns the authenticated owner's pages.
func (h *PagesHandler) ListPages(c *fiber.Ctx) error {
	result, err := h.pages.ListByOwner(c.Context(), middleware.AccountID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list landing pages",
		})
	}

	return c.JSON(fiber.Map{"landing_pages": result})
}

// UpdatePage applies a partial update to one of the owner's pages.
func (h *PagesHandler) UpdatePage(c *fiber.Ctx) error {
	var update models.LandingPageUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	page, err := h.pages.Update(c.Context(), c.Params("id"), middleware.AccountID(c), update)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Landing page not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update landing page",
		})
	}

	return c.JSON(page)
}

// GetPageBySlug serves the public widget configuration.
func (h *PagesHandler) GetPageBySlug(c *fiber.Ctx) error {
	page, err := h.pages.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Landing page not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch landing page",
		})
	}

	return c.JSON(page)
}

// ListPageCalls returns the call log for one of the owner's pages.
func (h *PagesHandler) ListPageCalls(c *fiber.Ctx) error {
	page, err := h.pages.GetByID(c.Context(), c.Params("id"))
	if err != nil || page.OwnerID != middleware.AccountID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Landing page not found",
		})
	}

	callLog, err := h.calls.ListByPage(c.Context(), page.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list calls",
		})
	}

	return c.JSON(fiber.Map{"calls": callLog})
}
