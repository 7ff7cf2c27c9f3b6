package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Handler handles OIDC-related requests
type Handler struct {
	db        *gorm.DB
	baseURL   string
	providers map[uint]*providerConfig
	mu        sync.RWMutex
}

type providerConfig struct {
	provider *oidc.Provider
	config   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// StateData stores OIDC state for validation
type StateData struct {
	ProviderID uint   `json:"provider_id"`
	ReturnURL  string `json:"return_url"`
	Nonce      string `json:"nonce"`
}

// NewHandler creates a new OIDC handler
func NewHandler(db *gorm.DB, baseURL string) *Handler {
	h := &Handler{
		db:        db,
		baseURL:   baseURL,
		providers: make(map[uint]*providerConfig),
	}
	// Load existing providers
	h.loadProviders()
	return h
}

// loadProviders loads all enabled OIDC providers from the database
func (h *Handler) loadProviders() {
	var providers []models.OIDCProvider
	h.db.Where("enabled = ?", true).Find(&providers)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range providers {
		if err := h.initProvider(p); err != nil {
			log.WithError(err).WithField("provider", p.Slug).Warn("failed to initialize OIDC provider")
			continue
		}
	}
}

// initProvider initializes an OIDC provider
func (h *Handler) initProvider(p models.OIDCProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, p.Issuer)
	if err != nil {
		return err
	}

	scopes := strings.Fields(p.Scopes)
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	config := oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  h.baseURL + "/api/oidc/callback",
		Scopes:       scopes,
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: p.ClientID})

	h.providers[p.ID] = &providerConfig{
		provider: provider,
		config:   config,
		verifier: verifier,
	}

	return nil
}

// generateRandomString returns a URL-safe random string of n bytes entropy
func generateRandomString(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// ProviderResponse represents an OIDC provider in API responses
type ProviderResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Enabled bool   `json:"enabled"`
}

// ListProviders returns all enabled OIDC providers (public endpoint)
func (h *Handler) ListProviders(c *gin.Context) {
	var providers []models.OIDCProvider
	h.db.Where("enabled = ?", true).Find(&providers)

	responses := make([]ProviderResponse, len(providers))
	for i, p := range providers {
		responses[i] = ProviderResponse{
			ID:      p.ID,
			Name:    p.Name,
			Slug:    p.Slug,
			Enabled: p.Enabled,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// AuthURLRequest represents a request for an auth URL
type AuthURLRequest struct {
	ReturnURL string `json:"return_url"`
}

// GetAuthURL returns the authorization URL for an OIDC provider
func (h *Handler) GetAuthURL(c *gin.Context) {
	slug := c.Param("slug")

	var provider models.OIDCProvider
	if err := h.db.Where("slug = ? AND enabled = ?", slug, true).First(&provider).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	h.mu.RLock()
	pc, ok := h.providers[provider.ID]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Provider not configured"})
		return
	}

	var req AuthURLRequest
	c.ShouldBindJSON(&req)

	// Generate state with provider ID and return URL
	nonce := generateRandomString(32)
	stateData := StateData{
		ProviderID: provider.ID,
		ReturnURL:  req.ReturnURL,
		Nonce:      nonce,
	}
	stateJSON, _ := json.Marshal(stateData)
	state := base64.URLEncoding.EncodeToString(stateJSON)

	authURL := pc.config.AuthCodeURL(state, oidc.Nonce(nonce))

	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback handles the OIDC callback
func (h *Handler) Callback(c *gin.Context) {
	// Parse state
	stateParam := c.Query("state")
	stateJSON, err := base64.URLEncoding.DecodeString(stateParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
		return
	}

	var stateData StateData
	if err := json.Unmarshal(stateJSON, &stateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
		return
	}

	// Get provider config
	h.mu.RLock()
	pc, ok := h.providers[stateData.ProviderID]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		return
	}

	// Exchange code for token
	code := c.Query("code")
	if code == "" {
		errorDesc := c.Query("error_description")
		if errorDesc == "" {
			errorDesc = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authentication failed: " + errorDesc})
		return
	}

	ctx := context.Background()
	oauth2Token, err := pc.config.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token"})
		return
	}

	// Extract ID token
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No ID token in response"})
		return
	}

	// Verify ID token
	idToken, err := pc.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify ID token"})
		return
	}

	// Verify nonce
	if idToken.Nonce != stateData.Nonce {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid nonce"})
		return
	}

	// Extract claims
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse claims"})
		return
	}

	if claims.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email not provided by identity provider"})
		return
	}

	// Get provider details
	var provider models.OIDCProvider
	h.db.First(&provider, stateData.ProviderID)

	// Find or create user
	user, err := h.findOrCreateUser(idToken.Subject, claims.Email, claims.Name, &provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process user"})
		return
	}

	// Check if user is active
	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "User account is deactivated"})
		return
	}

	orgID := uint(0)
	if user.OrganizationID != nil {
		orgID = *user.OrganizationID
	}

	// Generate JWT
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.Role), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// Redirect with token or return JSON based on return URL
	if stateData.ReturnURL != "" {
		redirectURL := stateData.ReturnURL + "?token=" + token
		c.Redirect(http.StatusFound, redirectURL)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": auth.UserResponse{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			Role:           string(user.Role),
			OrganizationID: user.OrganizationID,
		},
	})
}

// findOrCreateUser finds an existing user or provisions a new one. First
// logins take their role from the pre-assigned role table (employee when no
// entry exists) and land in the provider's organization.
func (h *Handler) findOrCreateUser(subject, email, name string, provider *models.OIDCProvider) (*models.User, error) {
	email = strings.ToLower(email)

	// First, check if we have an OIDC identity link
	var identity models.OIDCIdentity
	err := h.db.Where("provider_id = ? AND subject = ?", provider.ID, subject).First(&identity).Error

	if err == nil {
		var user models.User
		if err := h.db.First(&user, identity.UserID).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	// No identity link, check if user exists by email
	var user models.User
	err = h.db.Where("email = ?", email).First(&user).Error

	if err == nil {
		// User exists, create identity link
		identity := models.OIDCIdentity{
			UserID:     user.ID,
			ProviderID: provider.ID,
			Subject:    subject,
			Email:      email,
		}
		h.db.Create(&identity)
		return &user, nil
	}

	// User doesn't exist, check if auto-provisioning is enabled
	if !provider.AutoProvision {
		return nil, err
	}

	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	// Pre-assigned roles are consulted exactly once, before the User row
	// exists; later role changes go through the super admin endpoint.
	role := models.RoleEmployee
	var preAssigned models.PreAssignedRole
	if err := h.db.Where("email = ?", email).First(&preAssigned).Error; err == nil {
		role = preAssigned.Role
	}

	orgID := provider.OrganizationID
	user = models.User{
		Email:          email,
		Name:           name,
		Role:           role,
		OrganizationID: &orgID,
		Active:         true,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		identity := models.OIDCIdentity{
			UserID:     user.ID,
			ProviderID: provider.ID,
			Subject:    subject,
			Email:      email,
		}
		return tx.Create(&identity).Error
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user":     user.Email,
		"role":     user.Role,
		"provider": provider.Slug,
	}).Info("provisioned user from identity provider")

	return &user, nil
}

// Admin endpoints for managing OIDC providers

// AdminProviderResponse includes all provider details for admins
type AdminProviderResponse struct {
	ID             uint   `json:"id"`
	OrganizationID uint   `json:"organization_id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Issuer         string `json:"issuer"`
	ClientID       string `json:"client_id"`
	Scopes         string `json:"scopes"`
	Enabled        bool   `json:"enabled"`
	AutoProvision  bool   `json:"auto_provision"`
	CreatedAt      string `json:"created_at"`
}

func adminProviderResponse(p *models.OIDCProvider) AdminProviderResponse {
	return AdminProviderResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Slug:           p.Slug,
		Issuer:         p.Issuer,
		ClientID:       p.ClientID,
		Scopes:         p.Scopes,
		Enabled:        p.Enabled,
		AutoProvision:  p.AutoProvision,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

// CreateProviderRequest represents a request to create an OIDC provider
type CreateProviderRequest struct {
	OrganizationID uint   `json:"organization_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Slug           string `json:"slug" binding:"required"`
	Issuer         string `json:"issuer" binding:"required,url"`
	ClientID       string `json:"client_id" binding:"required"`
	ClientSecret   string `json:"client_secret" binding:"required"`
	Scopes         string `json:"scopes"`
	Enabled        bool   `json:"enabled"`
	AutoProvision  bool   `json:"auto_provision"`
}

// ListProvidersAdmin returns all OIDC providers for admins
func (h *Handler) ListProvidersAdmin(c *gin.Context) {
	var providers []models.OIDCProvider
	h.db.Find(&providers)

	responses := make([]AdminProviderResponse, len(providers))
	for i := range providers {
		responses[i] = adminProviderResponse(&providers[i])
	}

	c.JSON(http.StatusOK, responses)
}

// CreateProvider creates a new OIDC provider
func (h *Handler) CreateProvider(c *gin.Context) {
	var req CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, req.OrganizationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	provider := models.OIDCProvider{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Slug:           req.Slug,
		Issuer:         req.Issuer,
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		Scopes:         req.Scopes,
		Enabled:        req.Enabled,
		AutoProvision:  req.AutoProvision,
	}

	if err := h.db.Create(&provider).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create provider"})
		return
	}

	if provider.Enabled {
		h.mu.Lock()
		err := h.initProvider(provider)
		h.mu.Unlock()
		if err != nil {
			log.WithError(err).WithField("provider", provider.Slug).Warn("provider created but failed to initialize")
		}
	}

	c.JSON(http.StatusCreated, adminProviderResponse(&provider))
}

// UpdateProviderRequest represents a request to update an OIDC provider
type UpdateProviderRequest struct {
	Name          *string `json:"name"`
	Issuer        *string `json:"issuer"`
	ClientID      *string `json:"client_id"`
	ClientSecret  *string `json:"client_secret"`
	Scopes        *string `json:"scopes"`
	Enabled       *bool   `json:"enabled"`
	AutoProvision *bool   `json:"auto_provision"`
}

// UpdateProvider updates an OIDC provider
func (h *Handler) UpdateProvider(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider ID"})
		return
	}

	var provider models.OIDCProvider
	if err := h.db.First(&provider, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	var req UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		provider.Name = *req.Name
	}
	if req.Issuer != nil {
		provider.Issuer = *req.Issuer
	}
	if req.ClientID != nil {
		provider.ClientID = *req.ClientID
	}
	if req.ClientSecret != nil {
		provider.ClientSecret = *req.ClientSecret
	}
	if req.Scopes != nil {
		provider.Scopes = *req.Scopes
	}
	if req.Enabled != nil {
		provider.Enabled = *req.Enabled
	}
	if req.AutoProvision != nil {
		provider.AutoProvision = *req.AutoProvision
	}

	if err := h.db.Save(&provider).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update provider"})
		return
	}

	h.mu.Lock()
	if provider.Enabled {
		if err := h.initProvider(provider); err != nil {
			log.WithError(err).WithField("provider", provider.Slug).Warn("failed to reinitialize provider")
		}
	} else {
		delete(h.providers, provider.ID)
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, adminProviderResponse(&provider))
}

// DeleteProvider deletes an OIDC provider
func (h *Handler) DeleteProvider(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider ID"})
		return
	}

	var provider models.OIDCProvider
	if err := h.db.First(&provider, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	if err := h.db.Delete(&provider).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete provider"})
		return
	}

	h.mu.Lock()
	delete(h.providers, provider.ID)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Provider deleted"})
}

// RegisterRoutes registers public OIDC routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers", h.ListProviders)
	rg.POST("/auth-url/:slug", h.GetAuthURL)
	rg.GET("/callback", h.Callback)
}

// RegisterAdminRoutes registers provider management routes. The group is
// expected to carry the super admin role gate.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListProvidersAdmin)
	rg.POST("", h.CreateProvider)
	rg.PUT("/:id", h.UpdateProvider)
	rg.DELETE("/:id", h.DeleteProvider)
}
