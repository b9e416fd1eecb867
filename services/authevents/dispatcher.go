package authevents

import (
	"sync"
	"time"

	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/services/logging"
	"go.uber.org/zap"
)

// LoginEvent is emitted after a user successfully authenticates.
// HasRequest is false for logins triggered outside an HTTP request
// (management commands, background jobs), in which case UserAgent and
// RemoteAddr are empty.
type LoginEvent struct {
	User       *models.User
	UserAgent  string
	RemoteAddr string
	HasRequest bool
	At         time.Time
}

// Dispatcher fans a login event out to registered observers. This is
// the explicit stand-in for a framework signal hook: anything that
// wants to react to logins registers a callback at startup.
type Dispatcher struct {
	mu      sync.RWMutex
	onLogin []func(LoginEvent)
	logger  *logging.Service
}

func NewDispatcher(logger *logging.Service) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) OnLogin(fn func(LoginEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLogin = append(d.onLogin, fn)
}

// EmitLogin invokes observers synchronously, in registration order.
func (d *Dispatcher) EmitLogin(event LoginEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	d.mu.RLock()
	observers := make([]func(LoginEvent), len(d.onLogin))
	copy(observers, d.onLogin)
	d.mu.RUnlock()

	d.logger.Debug("dispatching login event",
		zap.Uint("user_id", event.User.ID),
		zap.Int("observers", len(observers)))

	for _, fn := range observers {
		fn(event)
	}
}
