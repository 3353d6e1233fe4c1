package models

import "time"

// LandingPage is a branded lead-capture page with an embedded chatbot. The
// slug is derived from the brand name and is the public identifier used by
// the widget.
type LandingPage struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	OwnerID      string    `gorm:"index;not null" json:"owner_id"`
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`
	BrandName    string    `gorm:"not null" json:"brand_name"`
	HeroTitle    string    `json:"hero_title"`
	HeroSubtitle string    `json:"hero_subtitle"`
	CustomPrompt string    `json:"custom_prompt"`
	ThemeColor   string    `json:"theme_color,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LandingPageUpdate carries the mutable subset of a landing page. Nil fields
// are left untouched.
type LandingPageUpdate struct {
	BrandName    *string `json:"brand_name,omitempty"`
	HeroTitle    *string `json:"hero_title,omitempty"`
	HeroSubtitle *string `json:"hero_subtitle,omitempty"`
	CustomPrompt *string `json:"custom_prompt,omitempty"`
	ThemeColor   *string `json:"theme_color,omitempty"`
}
