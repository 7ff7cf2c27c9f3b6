package models

import (
	"time"

	"gorm.io/gorm"
)

// OIDCProvider represents an OIDC identity provider configuration.
// Providers belong to an organization; users provisioned through a provider
// land in that organization.
type OIDCProvider struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`             // Display name (e.g., "Okta", "Google")
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"` // URL-safe identifier
	Issuer         string         `gorm:"not null" json:"issuer"`           // OIDC issuer URL
	ClientID       string         `gorm:"not null" json:"client_id"`
	ClientSecret   string         `gorm:"not null" json:"-"` // not exposed in JSON
	Scopes         string         `gorm:"default:'openid profile email'" json:"scopes"`
	Enabled        bool           `gorm:"default:true" json:"enabled"`
	AutoProvision  bool           `gorm:"default:true" json:"auto_provision"` // Auto-create users on first login

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// OIDCIdentity links a user to an OIDC provider identity
type OIDCIdentity struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	ProviderID uint           `gorm:"not null;index" json:"provider_id"`
	Subject    string         `gorm:"not null" json:"subject"` // OIDC subject (sub claim)
	Email      string         `json:"email"`

	// Relationships
	User     User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Provider OIDCProvider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}
