package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so connection handling and
// message routing code never has to repeat user_id/message_id on every call.
type LogFields struct {
	UserID         *int64  // authenticated identity for the current work unit
	ConnID         *string // websocket connection instance
	MessageID      *int64  // message being routed
	ConversationID *int64  // conversation aggregate being updated
	Event          *string // inbound event name (e.g. "sendMessage", "typing")
	Component      string  // component name (e.g. "chatwire.ws.gateway")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.ConnID != nil {
		result.ConnID = new.ConnID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.ConversationID != nil {
		result.ConversationID = new.ConversationID
	}
	if new.Event != nil {
		result.Event = new.Event
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
