package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/harborchat/harborchat/middleware/ratelimit"
	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/server"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(
		NewTypingHandler,
		NewSettingsHandler,
		NewConfirmHandler,
		NewAuthHandler,
	),
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(
	srv *server.Server,
	db *gorm.DB,
	logger *logging.Service,
	typingHandler *TypingHandler,
	settingsHandler *SettingsHandler,
	confirmHandler *ConfirmHandler,
	authHandler *AuthHandler,
) {
	srv.Echo().Use(logging.RequestLogger(logger))

	loginLimit := ratelimit.Middleware(&ratelimit.Config{
		Rate:   10,
		Period: time.Minute,
	})
	srv.Echo().POST("/login", authHandler.Login, loginLimit)

	srv.Get("/accounts/confirm_new_email/:key", confirmHandler.ConfirmNewEmail)
	srv.Get("/accounts/unsubscribe/login/:key", confirmHandler.UnsubscribeLoginEmails)

	api := srv.Group("/api/v1")
	api.Use(RequireUser(db, logger))
	api.Use(ratelimit.Middleware(&ratelimit.Config{
		Rate:         200,
		Period:       time.Minute,
		KeyGenerator: apiRateLimitKey,
		OnLimitReached: func(c echo.Context) error {
			return jsonErrorStatus(c, http.StatusTooManyRequests, "API usage exceeded rate limit")
		},
	}))
	api.POST("/typing", typingHandler.SendNotification)
	api.PATCH("/settings", settingsHandler.Update)
}

// apiRateLimitKey buckets authenticated traffic per account rather than
// per source address.
func apiRateLimitKey(c echo.Context) string {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return fmt.Sprintf("rate_limit:user:%d", user.ID)
	}
	return ratelimit.DefaultKeyGenerator(c)
}
