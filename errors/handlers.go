package errors

import (
	"go.uber.org/zap"
)

// LogError logs err at warn level with its failure class. A nil logger
// means DefaultLogger.
func LogError(logger *zap.Logger, err error, requestID string) {
	if logger == nil {
		logger = DefaultLogger
	}

	var chatErr *ChatError
	if !As(err, &chatErr) {
		logger.Warn("Unexpected error",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		return
	}

	fields := []zap.Field{
		zap.String("error_type", string(chatErr.Type)),
		zap.String("message", chatErr.Message),
		zap.Int("code", chatErr.Code),
		zap.String("request_id", requestID),
	}
	if len(chatErr.Details) > 0 {
		fields = append(fields, zap.Any("details", chatErr.Details))
	}
	if chatErr.err != nil {
		fields = append(fields, zap.NamedError("cause", chatErr.err))
	}
	logger.Warn("Request failed", fields...)
}
