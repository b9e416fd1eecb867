package authevents

import (
	"testing"
	"time"

	"github.com/harborchat/harborchat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_EmitLogin(t *testing.T) {
	t.Run("invokes observers in registration order", func(t *testing.T) {
		d := NewDispatcher(nil)

		var order []string
		d.OnLogin(func(LoginEvent) { order = append(order, "first") })
		d.OnLogin(func(LoginEvent) { order = append(order, "second") })

		d.EmitLogin(LoginEvent{User: &models.User{}})

		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("passes the event through unchanged", func(t *testing.T) {
		d := NewDispatcher(nil)
		user := &models.User{Email: "hamlet@example.com"}

		var got LoginEvent
		d.OnLogin(func(e LoginEvent) { got = e })

		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		d.EmitLogin(LoginEvent{
			User:       user,
			UserAgent:  "Firefox",
			RemoteAddr: "10.0.0.1",
			HasRequest: true,
			At:         at,
		})

		assert.Same(t, user, got.User)
		assert.Equal(t, "Firefox", got.UserAgent)
		assert.Equal(t, "10.0.0.1", got.RemoteAddr)
		assert.True(t, got.HasRequest)
		assert.Equal(t, at, got.At)
	})

	t.Run("fills in a timestamp when unset", func(t *testing.T) {
		d := NewDispatcher(nil)

		var got LoginEvent
		d.OnLogin(func(e LoginEvent) { got = e })

		d.EmitLogin(LoginEvent{User: &models.User{}})

		require.False(t, got.At.IsZero())
	})

	t.Run("no observers is a no-op", func(t *testing.T) {
		d := NewDispatcher(nil)

		assert.NotPanics(t, func() {
			d.EmitLogin(LoginEvent{User: &models.User{}})
		})
	})
}
