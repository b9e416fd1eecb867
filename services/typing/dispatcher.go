package typing

import (
	"errors"

	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/services/logging"
	"go.uber.org/zap"
)

const (
	OperatorStart = "start"
	OperatorStop  = "stop"
)

var ErrBadOperator = errors.New("invalid operator: must be 'start' or 'stop'")

// Dispatcher forwards typing notifications to the realtime fan-out.
// Notifications are ephemeral: nothing is persisted and a returned nil
// only means the event was handed off.
type Dispatcher interface {
	SendDirectTyping(sender *models.User, operator string, recipientIDs []int64) error
	SendStreamTyping(sender *models.User, operator string, streamID int64, topic string) error
}

// Sink receives accepted typing events. The realtime transport behind
// it lives elsewhere; tests register recording sinks.
type Sink interface {
	DirectTyping(senderID uint, operator string, recipientIDs []int64)
	StreamTyping(senderID uint, operator string, streamID int64, topic string)
}

type dispatcher struct {
	sinks  []Sink
	logger *logging.Service
}

func NewDispatcher(logger *logging.Service, sinks ...Sink) Dispatcher {
	return &dispatcher{sinks: sinks, logger: logger}
}

func (d *dispatcher) SendDirectTyping(sender *models.User, operator string, recipientIDs []int64) error {
	if err := checkOperator(operator); err != nil {
		return err
	}

	d.logger.Debug("direct typing notification",
		zap.Uint("sender_id", sender.ID),
		zap.String("operator", operator),
		zap.Int("recipients", len(recipientIDs)))

	for _, sink := range d.sinks {
		sink.DirectTyping(sender.ID, operator, recipientIDs)
	}
	return nil
}

func (d *dispatcher) SendStreamTyping(sender *models.User, operator string, streamID int64, topic string) error {
	if err := checkOperator(operator); err != nil {
		return err
	}

	d.logger.Debug("stream typing notification",
		zap.Uint("sender_id", sender.ID),
		zap.String("operator", operator),
		zap.Int64("stream_id", streamID),
		zap.String("topic", topic))

	for _, sink := range d.sinks {
		sink.StreamTyping(sender.ID, operator, streamID, topic)
	}
	return nil
}

func checkOperator(operator string) error {
	if operator != OperatorStart && operator != OperatorStop {
		return ErrBadOperator
	}
	return nil
}
