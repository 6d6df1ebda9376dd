package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// EventRecorder receives authentication events for the audit log.
type EventRecorder interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// RegisterRequest is the body of POST /user/register.
type RegisterRequest struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	ContactNumber string `json:"contactNumber"`
}

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	Identifier string `json:"identifier"` // Username or e-mail
	Password   string `json:"password"`
}

// LoginResponse carries the logged-in user and a fresh API token.
type LoginResponse struct {
	User        *entities.User `json:"user"`
	AccessToken string         `json:"accessToken"`
}

// UserController handles the /user endpoints.
type UserController struct {
	service        *Service
	sessionManager *SessionManager
	limiter        *LoginLimiter
	events         EventRecorder
}

// NewUserController creates a new user controller. events may be nil.
func NewUserController(service *Service, sessionManager *SessionManager, cfg config.Auth, events EventRecorder) *UserController {
	return &UserController{
		service:        service,
		sessionManager: sessionManager,
		limiter:        NewLoginLimiter(cfg),
		events:         events,
	}
}

// RegisterRoutes registers the user routes on the group.
func (uc *UserController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/register", uc.Register)
	group.POST("/login", uc.Login)
	group.GET("/checkUsername", uc.CheckUsername)
	group.GET("/csrf", uc.CSRFToken)
	group.POST("/logout", uc.Logout)
	group.POST("/refreshToken", uc.RefreshToken)
	group.POST("/refreshAccessToken", uc.RefreshToken)
	group.GET("/currentUser", uc.CurrentUser)
}

// Register creates a member account.
func (uc *UserController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
		return
	}

	user, err := uc.service.Register(Registration{
		FullName:      req.FullName,
		Email:         req.Email,
		Username:      req.Username,
		Password:      req.Password,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			respondError(c, http.StatusConflict, err.Error(), "USER_EXISTS")
			return
		}
		if isValidationError(err) {
			respondError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
			return
		}
		log.Printf("Failed to register user: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to register user", "INTERNAL_ERROR")
		return
	}

	uc.record(c, user.ID, "register", true)
	c.JSON(http.StatusCreated, user)
}

// Login authenticates by username or e-mail, starts a session and
// returns a new API token.
func (uc *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
		return
	}
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" {
		respondError(c, http.StatusBadRequest, ErrIdentifierRequired.Error(), "INVALID_INPUT")
		return
	}
	clientIP := c.ClientIP()

	// Throttle before bcrypt runs
	if wait := uc.limiter.RetryAfter(clientIP, identifier); wait > 0 {
		c.Header("Retry-After", retryAfterSeconds(wait))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"code":        "RATE_LIMITED",
			"retry_after": retryAfterSeconds(wait),
		})
		return
	}

	user, err := uc.service.Authenticate(req.Identifier, req.Password)
	if err != nil {
		if uc.limiter.Fail(clientIP, identifier) {
			log.Printf("Login for %q from %s locked out after repeated failures", identifier, clientIP)
		}
		uc.record(c, 0, "login", false)

		switch {
		case errors.Is(err, ErrAccountLocked):
			respondError(c, http.StatusLocked, "account is locked, try again later", "ACCOUNT_LOCKED")
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			// Same answer for both, so usernames cannot be enumerated
			respondError(c, http.StatusUnauthorized, "invalid user credentials", "INVALID_CREDENTIALS")
		default:
			log.Printf("Failed to authenticate %q: %v", identifier, err)
			respondError(c, http.StatusInternalServerError, "failed to log in", "INTERNAL_ERROR")
		}
		return
	}

	uc.limiter.Succeed(clientIP, identifier)

	if uc.sessionManager != nil {
		if err := uc.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
			respondError(c, http.StatusInternalServerError, "failed to create session", "INTERNAL_ERROR")
			return
		}
	}

	token, err := uc.service.GenerateToken(user.ID)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", user.ID, err)
		respondError(c, http.StatusInternalServerError, "failed to generate token", "INTERNAL_ERROR")
		return
	}

	uc.record(c, user.ID, "login", true)
	c.JSON(http.StatusOK, LoginResponse{User: user, AccessToken: token})
}

// Logout ends the session and revokes the API token.
func (uc *UserController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if userID == AnonymousUserID {
		respondError(c, http.StatusUnauthorized, ErrAuthRequired.Error(), "UNAUTHORIZED")
		return
	}

	if err := uc.service.RevokeToken(userID); err != nil {
		log.Printf("Failed to revoke token for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "failed to log out", "INTERNAL_ERROR")
		return
	}
	if uc.sessionManager != nil {
		_ = uc.sessionManager.DestroySession(c.Request)
	}

	uc.record(c, userID, "logout", true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// RefreshToken replaces the caller's API token with a new one.
func (uc *UserController) RefreshToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == AnonymousUserID {
		respondError(c, http.StatusUnauthorized, ErrAuthRequired.Error(), "UNAUTHORIZED")
		return
	}

	token, err := uc.service.GenerateToken(userID)
	if err != nil {
		log.Printf("Failed to refresh token for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "failed to generate token", "INTERNAL_ERROR")
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": token})
}

// CheckUsername answers whether ?username= is still free.
func (uc *UserController) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	available, err := uc.service.UsernameAvailable(username)
	if err != nil {
		if errors.Is(err, ErrUsernameRequired) {
			respondError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
			return
		}
		log.Printf("Failed to check username: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to check username", "INTERNAL_ERROR")
		return
	}
	if !available {
		respondError(c, http.StatusBadRequest, "username already taken", "USERNAME_TAKEN")
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": strings.ToLower(strings.TrimSpace(username)), "available": true})
}

// CurrentUser returns the authenticated user.
func (uc *UserController) CurrentUser(c *gin.Context) {
	userID := GetUserID(c)
	if userID == AnonymousUserID {
		respondError(c, http.StatusUnauthorized, ErrAuthRequired.Error(), "UNAUTHORIZED")
		return
	}

	user, err := uc.service.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respondError(c, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load user", "INTERNAL_ERROR")
		return
	}

	c.JSON(http.StatusOK, user)
}

// CSRFToken hands browser clients the token for cookie-authenticated writes.
func (uc *UserController) CSRFToken(c *gin.Context) {
	token := GetCSRFToken(c)
	c.Header(CSRFTokenHeader, token)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

func (uc *UserController) record(c *gin.Context, userID uint, action string, success bool) {
	if uc.events == nil {
		return
	}
	uc.events.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameRequired, ErrEmailRequired, ErrPasswordRequired, ErrFullNameRequired,
		ErrUsernameInvalid, ErrEmailInvalid, ErrContactInvalid, ErrInvalidRole,
		ErrPasswordTooShort, ErrPasswordTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func respondError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
