package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ConfirmHandler struct {
	emailChange *emailchange.Service
	logger      *logging.Service
}

func NewConfirmHandler(emailChange *emailchange.Service, logger *logging.Service) *ConfirmHandler {
	return &ConfirmHandler{emailChange: emailChange, logger: logger}
}

// ConfirmNewEmail serves the link from the confirmation email. A valid
// key is not consumed here: the user is sent to log in again with the
// key carried along, and the change applies after that succeeds.
func (h *ConfirmHandler) ConfirmNewEmail(c echo.Context) error {
	key := c.Param("key")

	if _, err := h.emailChange.Lookup(key); err != nil {
		return h.renderLookupError(c, err)
	}

	target := "/login?action_key=" + url.QueryEscape(key)
	return c.Redirect(http.StatusFound, target)
}

// UnsubscribeLoginEmails serves the one-click unsubscribe link embedded
// in login notification emails.
func (h *ConfirmHandler) UnsubscribeLoginEmails(c echo.Context) error {
	key := c.Param("key")

	user, err := h.emailChange.Unsubscribe(key)
	if err != nil {
		return h.renderLookupError(c, err)
	}

	h.logger.Info("unsubscribed from login emails", zap.Uint("user_id", user.ID))
	return renderPage(c, http.StatusOK, "Unsubscribed",
		"You will no longer receive an email when a new login to your account is detected.")
}

func (h *ConfirmHandler) renderLookupError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, emailchange.ErrKeyNotFound):
		return renderPage(c, http.StatusNotFound, "Confirmation link not found", msgLinkNotFound)
	case errors.Is(err, emailchange.ErrKeyMalformed):
		return renderPage(c, http.StatusBadRequest, "Confirmation link malformed", msgLinkMalformed)
	case errors.Is(err, emailchange.ErrKeyExpired), errors.Is(err, emailchange.ErrKeyUsed):
		return renderPage(c, http.StatusGone, "Confirmation link expired", msgLinkExpired)
	default:
		h.logger.Error("confirmation lookup failed", zap.Error(err))
		return renderPage(c, http.StatusInternalServerError, "Error", "Something went wrong.")
	}
}
