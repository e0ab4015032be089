package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"votronix-auth/internal/domain"
	"votronix-auth/internal/service"
	"votronix-auth/internal/storage"
)

const (
	msgEmailInUse         = "Email already in use"
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthorized       = "Unauthorized"
	msgInvalidToken       = "Invalid token"
	msgServerError        = "Server error"
	msgUploadFailed       = "Upload failed"
	msgInvalidRequest     = "Invalid request"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth         service.AuthService
	media        service.MediaService
	logger       *logrus.Logger
	maxBodyBytes int64
}

// NewHandler builds the HTTP handler. maxUploadBytes caps the decoded image
// size; the request body limit is derived from it.
func NewHandler(auth service.AuthService, media service.MediaService, logger *logrus.Logger, maxUploadBytes int) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		auth:   auth,
		media:  media,
		logger: logger,
		// base64 inflates by 4/3, plus room for a data URI header and JSON framing
		maxBodyBytes: int64(maxUploadBytes)/3*4 + 4<<10,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	for _, path := range []string{"/signup", "/auth/register"} {
		router.POST(path, h.signup)
	}
	for _, path := range []string{"/login", "/auth/login"} {
		router.POST(path, h.login)
	}
	router.GET("/profile", h.profile)
	router.PUT("/profile/picture", h.setProfilePicture)
	router.POST("/upload", h.upload)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
}

type profilePictureRequest struct {
	URL string `json:"url" binding:"required"`
}

type uploadRequest struct {
	Image string `json:"image" binding:"required"`
}

// ProfileResponse carries the public fields of a user.
type ProfileResponse struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
	ProfileResponse
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

// tokenFromHeader extracts the token from an Authorization header value.
// Clients send the raw token; a "Bearer " prefix is tolerated.
func tokenFromHeader(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.auth.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, http.StatusBadRequest)
		return
	}

	resp := gin.H{"message": "User created successfully"}
	if res.NotificationErr != nil {
		h.logger.WithField("user_id", res.User.ID).Warnf("welcome email not queued: %v", res.NotificationErr)
		resp["warnings"] = []string{"confirmation email could not be sent"}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:           res.Token,
		ProfileResponse: toProfileResponse(res.User),
	})
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.auth.GetProfile(c.Request.Context(), tokenFromHeader(c.GetHeader("Authorization")))
	if err != nil {
		h.respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(user))
}

func (h *Handler) setProfilePicture(c *gin.Context) {
	var req profilePictureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.auth.SetProfileImage(c.Request.Context(), tokenFromHeader(c.GetHeader("Authorization")), req.URL)
	if err != nil {
		h.respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(user))
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Image too large"})
			return
		}
		h.badRequest(c, err)
		return
	}

	url, err := h.media.UploadImage(c.Request.Context(), req.Image)
	if err != nil {
		if errors.Is(err, storage.ErrImageTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Image too large"})
			return
		}
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image"})
			return
		}
		h.logger.WithError(err).Error("image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgUploadFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded successfully", "url": url})
}

// badRequest answers 400 with the stable message; binder and validator
// details name internal types, so they only go to the log.
func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.WithError(err).WithField("path", c.FullPath()).Debug("invalid request")
	c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidRequest})
}

// respondError maps service errors to status codes. userNotFoundStatus differs
// per route: login reports a missing user as 400, profile routes as 404.
func (h *Handler) respondError(c *gin.Context, err error, userNotFoundStatus int) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.badRequest(c, err)
	case errors.Is(err, service.ErrEmailInUse):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgEmailInUse})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(userNotFoundStatus, gin.H{"message": msgUserNotFound})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidCredentials})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgUnauthorized})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidToken})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgServerError})
	}
}

func toProfileResponse(user *domain.User) ProfileResponse {
	return ProfileResponse{
		Username:       user.Username,
		Email:          user.Email,
		ProfilePicture: user.ProfileImageURL,
	}
}
