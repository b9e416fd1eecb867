package handlers

import (
	"errors"

	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const userContextKey = "harborchat.user"

// RequireUser authenticates API requests with HTTP basic auth against
// the users table and stores the resolved user on the request context.
// Session-based authentication lives in front of this service; basic
// auth is the minimal credential check the API itself owns.
func RequireUser(db *gorm.DB, logger *logging.Service) echo.MiddlewareFunc {
	return middleware.BasicAuth(func(email, password string, c echo.Context) (bool, error) {
		var user models.User
		err := db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return false, nil
		}

		c.Set(userContextKey, &user)
		return true, nil
	})
}

func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
