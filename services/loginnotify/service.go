package loginnotify

import (
	"fmt"
	"time"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/authevents"
	"github.com/harborchat/harborchat/services/device"
	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/queue"
	"go.uber.org/zap"
)

const (
	unknownIP      = "Unknown IP address"
	unknownOS      = "an unknown operating system"
	unknownBrowser = "An unknown browser"
)

// Service sends a "new login to your account" email when a user
// authenticates. It never fails the login: every problem is logged and
// swallowed.
type Service struct {
	config      *config.Config
	enqueuer    queue.Enqueuer
	emailChange *emailchange.Service
	logger      *logging.Service

	// overridable in tests
	now func() time.Time
}

func NewService(cfg *config.Config, enqueuer queue.Enqueuer, emailChange *emailchange.Service, logger *logging.Service) *Service {
	return &Service{
		config:      cfg,
		enqueuer:    enqueuer,
		emailChange: emailChange,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleLogin is registered as an observer on the login event.
func (s *Service) HandleLogin(event authevents.LoginEvent) {
	user := event.User

	if !s.config.Notifications.LoginEmailsEnabled {
		return
	}

	if !user.EnableLoginEmails {
		s.logger.Debug("login email skipped: disabled by user", zap.Uint("user_id", user.ID))
		return
	}

	// Logins without a request context (management commands, internal
	// jobs) have no client to describe.
	if !event.HasRequest {
		return
	}

	at := event.At
	if at.IsZero() {
		at = s.now()
	}

	// A user who just signed up does not need to hear about the login
	// that created the account.
	if at.Sub(user.CreatedAt) <= s.config.Notifications.JustCreatedThreshold {
		s.logger.Debug("login email skipped: account just created", zap.Uint("user_id", user.ID))
		return
	}

	osLabel := device.OS(event.UserAgent)
	if osLabel == "" {
		osLabel = unknownOS
	}
	browserLabel := device.Browser(event.UserAgent)
	if browserLabel == "" {
		browserLabel = unknownBrowser
	}
	ip := event.RemoteAddr
	if ip == "" {
		ip = unknownIP
	}

	context := map[string]any{
		"user_email":       user.Email,
		"full_name":        user.FullName,
		"login_time":       s.formatLoginTime(user.TwentyFourHourTime, user.Timezone, at),
		"device_ip":        ip,
		"device_os":        osLabel,
		"device_browser":   browserLabel,
		"realm_url":        s.config.App.URL,
		"unsubscribe_link": s.unsubscribeLink(event),
	}

	job := queue.NewEmailJob(
		"notify_new_login",
		[]string{user.Email},
		fmt.Sprintf("%s Account Security", s.config.App.Name),
		fmt.Sprintf("New login from %s on %s", browserLabel, osLabel),
		context,
	)
	if err := s.enqueuer.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue login notification",
			zap.Error(err),
			zap.Uint("user_id", user.ID))
		return
	}

	s.logger.Info("login notification enqueued",
		zap.Uint("user_id", user.ID),
		zap.String("browser", browserLabel),
		zap.String("os", osLabel))
}

// formatLoginTime renders the timestamp in the user's timezone and
// clock preference, e.g. "Tuesday, May 07, 2024 at 02:30PM CEST".
func (s *Service) formatLoginTime(twentyFourHour bool, timezone string, at time.Time) string {
	loc := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		} else {
			s.logger.Warn("unknown user timezone, using server default",
				zap.String("timezone", timezone))
		}
	}

	local := at.In(loc)
	hhmm := "03:04PM"
	if twentyFourHour {
		hhmm = "15:04"
	}
	return local.Format("Monday, January 02, 2006 at " + hhmm + " MST")
}

func (s *Service) unsubscribeLink(event authevents.LoginEvent) string {
	confirmation, err := s.emailChange.CreateUnsubscribeConfirmation(event.User)
	if err != nil {
		s.logger.Error("failed to create unsubscribe link",
			zap.Error(err),
			zap.Uint("user_id", event.User.ID))
		return ""
	}
	return s.emailChange.UnsubscribeURL(confirmation.Key)
}
