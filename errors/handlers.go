package errors

import (
	"go.uber.org/zap"
)

// LogError logs an error with its context
func LogError(logger *zap.Logger, err error, requestID string) {
	if inkErr, ok := err.(*InkwellError); ok {
		logger.Error("request error",
			zap.String("error_type", string(inkErr.Type)),
			zap.String("message", inkErr.Message),
			zap.Int("code", inkErr.Code),
			zap.String("request_id", requestID),
			zap.Any("details", inkErr.Details),
		)
	} else {
		logger.Error("unexpected error",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
	}
}
