package app

import (
	"errors"

	evbus "github.com/asaskevich/EventBus"
)

// TopicSessionExpired is published with the cause (an error) when the
// session ends on its own, e.g. because the refresh token was revoked.
const TopicSessionExpired = "session:expired"

var errSessionEnded = errors.New("session ended")

func newBus() evbus.Bus {
	return evbus.New()
}

// OnSessionExpired registers fn for TopicSessionExpired. Handlers run
// synchronously, before any request waiting on the failed refresh returns.
func (app *Application) OnSessionExpired(fn func(cause error)) error {
	return app.bus.Subscribe(TopicSessionExpired, fn)
}

func (app *Application) publishSessionExpired(cause error) {
	// the bus calls handlers via reflection and cannot pass a nil interface
	if cause == nil {
		cause = errSessionEnded
	}
	app.logger.Warn("session expired, credentials cleared", "cause", cause)
	app.bus.Publish(TopicSessionExpired, cause)
}
