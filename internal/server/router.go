package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Annibadakh/notes-taking-backend/internal/accounts"
	"github.com/Annibadakh/notes-taking-backend/internal/auth"
	"github.com/Annibadakh/notes-taking-backend/internal/notes"
)

const userIDContextKey = "notes_user_id"

var (
	errMissingAccountService = errors.New("account service dependency required")
	errMissingNotesService   = errors.New("notes service dependency required")
	errMissingTokenValidator = errors.New("token validator dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator checks bearer session tokens on protected routes.
type TokenValidator interface {
	Validate(token string) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP layer to the domain services.
type Dependencies struct {
	Accounts *accounts.Service
	Notes    *notes.Service
	Tokens   TokenValidator
	Logger   *zap.Logger
}

// NewHTTPHandler builds the gin router with all routes registered.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.Notes == nil {
		return nil, errMissingNotesService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenValidator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		accounts: deps.Accounts,
		notes:    deps.Notes,
		tokens:   deps.Tokens,
		logger:   logger,
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "HD Note Taking Server"})
	})

	signup := router.Group("/signup")
	signup.POST("/register", handler.handleRegister)
	signup.POST("/verify-otp", handler.handleVerifyRegistrationOTP)
	signup.POST("/resend-otp", handler.handleResendRegistrationOTP)
	signup.POST("/oauth", handler.handleOAuthRegister)

	login := router.Group("/login")
	login.POST("/manual-login", handler.handleLogin)
	login.POST("/verify-otp", handler.handleVerifyLoginOTP)
	login.POST("/oauth", handler.handleOAuthLogin)

	protected := router.Group("/notes")
	protected.Use(handler.authorizeRequest)
	protected.POST("/create", handler.handleCreateNote)
	protected.GET("/get-notes", handler.handleListNotes)
	protected.GET("/getnote/:id", handler.handleGetNote)
	protected.PUT("/save/:id", handler.handleUpdateNote)
	protected.DELETE("/delete-note/:id", handler.handleDeleteNote)
	protected.GET("/stats", handler.handleNoteStats)
	protected.PATCH("/:id/archive", handler.handleToggleArchive)
	protected.PATCH("/:id/pin", handler.handleTogglePin)

	return router, nil
}

type httpHandler struct {
	accounts *accounts.Service
	notes    *notes.Service
	tokens   TokenValidator
	logger   *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn("session token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, claims.Subject)
	c.Next()
}
