package handlers

import (
	"errors"

	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	emailChange *emailchange.Service
	logger      *logging.Service
}

func NewSettingsHandler(emailChange *emailchange.Service, logger *logging.Service) *SettingsHandler {
	return &SettingsHandler{emailChange: emailChange, logger: logger}
}

// Update handles the settings endpoint. Only the email field is owned
// here; changing it starts the confirmation workflow rather than
// applying directly.
func (h *SettingsHandler) Update(c echo.Context) error {
	user := currentUser(c)

	newEmail := param(c, "email")
	if newEmail == "" {
		return jsonSuccess(c)
	}

	confirmation, err := h.emailChange.Start(user, newEmail)
	if err != nil {
		switch {
		case errors.Is(err, emailchange.ErrChangesDisabled):
			return jsonError(c, "Email address changes are disabled in this organization.")
		case errors.Is(err, emailchange.ErrEmailTaken):
			return jsonError(c, "Already has an account")
		case errors.Is(err, emailchange.ErrInvalidAddress):
			return jsonError(c, "Invalid address")
		default:
			h.logger.Error("email change request failed",
				zap.Error(err),
				zap.Uint("user_id", user.ID))
			return jsonErrorStatus(c, 500, "Internal server error")
		}
	}

	// Requesting the current address again is a no-op.
	if confirmation == nil {
		return jsonSuccess(c)
	}

	return jsonSuccessMsg(c, "Check your email for a confirmation link.")
}
