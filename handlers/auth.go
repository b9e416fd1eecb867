package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/services/authevents"
	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db          *gorm.DB
	dispatcher  *authevents.Dispatcher
	emailChange *emailchange.Service
	logger      *logging.Service
}

func NewAuthHandler(db *gorm.DB, dispatcher *authevents.Dispatcher, emailChange *emailchange.Service, logger *logging.Service) *AuthHandler {
	return &AuthHandler{
		db:          db,
		dispatcher:  dispatcher,
		emailChange: emailChange,
		logger:      logger,
	}
}

// Login verifies credentials, emits the login event, and, when the
// request carries a pending email-change key owned by this user,
// finalizes the change. The key must survive the hand-off from the
// confirmation link unchanged.
func (h *AuthHandler) Login(c echo.Context) error {
	email := param(c, "username")
	password := param(c, "password")
	actionKey := param(c, "action_key")

	var user models.User
	err := h.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonErrorStatus(c, http.StatusUnauthorized, "Your username or password is incorrect.")
		}
		return jsonErrorStatus(c, http.StatusInternalServerError, "Internal server error")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return jsonErrorStatus(c, http.StatusUnauthorized, "Your username or password is incorrect.")
	}

	msg := ""
	if actionKey != "" {
		status, err := h.emailChange.Lookup(actionKey)
		if err != nil {
			return jsonError(c, msgLinkExpiredOrInvalid(err))
		}
		if status.UserID != user.ID {
			// The key belongs to a different account; logging in here
			// must not apply someone else's change.
			return jsonError(c, msgLinkNotFound)
		}

		confirmed, err := h.emailChange.Confirm(actionKey)
		if err != nil {
			return jsonError(c, msgLinkExpiredOrInvalid(err))
		}
		user.Email = confirmed.NewEmail
		msg = "Email changed to " + confirmed.NewEmail
	}

	now := time.Now()
	if err := h.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		h.logger.Warn("failed to stamp last login", zap.Error(err), zap.Uint("user_id", user.ID))
	}

	h.dispatcher.EmitLogin(authevents.LoginEvent{
		User:       &user,
		UserAgent:  c.Request().UserAgent(),
		RemoteAddr: c.RealIP(),
		HasRequest: true,
		At:         now,
	})

	return jsonSuccessMsg(c, msg)
}

func msgLinkExpiredOrInvalid(err error) string {
	switch {
	case errors.Is(err, emailchange.ErrKeyMalformed):
		return msgLinkMalformed
	case errors.Is(err, emailchange.ErrKeyExpired), errors.Is(err, emailchange.ErrKeyUsed):
		return msgLinkExpired
	default:
		return msgLinkNotFound
	}
}
