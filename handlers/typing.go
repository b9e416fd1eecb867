package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/typing"
	"github.com/labstack/echo/v4"
)

const (
	msgInsufficientArgs = "Insufficient arguments. Should have 'to' or both 'stream_id' and 'topic'."
	msgAllAtOnce        = "All 'to', 'stream_id', and 'topic' at once are not accepted"
	msgBadArgs          = "Bad arguments. Should have 'to' or both 'stream_id' and 'topic'."
)

type TypingHandler struct {
	dispatcher typing.Dispatcher
	logger     *logging.Service
}

func NewTypingHandler(dispatcher typing.Dispatcher, logger *logging.Service) *TypingHandler {
	return &TypingHandler{dispatcher: dispatcher, logger: logger}
}

// SendNotification relays a "user is typing" event either to a list of
// direct-message recipients or to a stream/topic pair, never both.
func (h *TypingHandler) SendNotification(c echo.Context) error {
	user := currentUser(c)

	operator := param(c, "op")
	toParam := param(c, "to")
	streamParam := param(c, "stream_id")
	topic := param(c, "topic")

	var recipientIDs []int64
	if toParam != "" {
		if err := json.Unmarshal([]byte(toParam), &recipientIDs); err != nil {
			return jsonError(c, "Argument 'to' is not a valid list of user ids")
		}
	}

	// An explicitly supplied empty list means no recipients, same as
	// leaving the argument out.
	toPresent := len(recipientIDs) > 0
	streamPresent := streamParam != ""
	topicPresent := topic != ""

	if !toPresent && !streamPresent && !topicPresent {
		return jsonError(c, msgInsufficientArgs)
	}
	if toPresent && streamPresent && topicPresent {
		return jsonError(c, msgAllAtOnce)
	}

	switch {
	case toPresent && !streamPresent && !topicPresent:
		if err := h.dispatcher.SendDirectTyping(user, operator, recipientIDs); err != nil {
			return jsonError(c, err.Error())
		}
	case streamPresent && topicPresent:
		streamID, err := strconv.ParseInt(streamParam, 10, 64)
		if err != nil {
			return jsonError(c, "Argument 'stream_id' is not a valid integer")
		}
		if err := h.dispatcher.SendStreamTyping(user, operator, streamID, topic); err != nil {
			return jsonError(c, err.Error())
		}
	default:
		return jsonError(c, msgBadArgs)
	}

	return jsonSuccess(c)
}
