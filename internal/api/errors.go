package api

import (
	"errors"
	"net/http"

	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/repository"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const (
	codeUnavailable = "unavailable"
	codeInternal    = "internal"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var kindStatus = map[service.Kind]int{
	service.KindUnauthenticated:    http.StatusUnauthorized,
	service.KindInvalidArgument:    http.StatusBadRequest,
	service.KindFailedPrecondition: http.StatusPreconditionFailed,
	service.KindAlreadyExists:      http.StatusConflict,
	service.KindNotFound:           http.StatusNotFound,
	service.KindCorruptState:       http.StatusInternalServerError,
}

func errorStatus(err error) (int, ErrorBody) {
	if e, ok := service.AsError(err); ok {
		status, known := kindStatus[e.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		return status, ErrorBody{Code: string(e.Kind), Message: e.Message}
	}

	if errors.Is(err, repository.ErrTxAborted) {
		return http.StatusServiceUnavailable, ErrorBody{Code: codeUnavailable, Message: "service busy, try again"}
	}

	return http.StatusInternalServerError, ErrorBody{Code: codeInternal, Message: "internal server error"}
}

// writeError aborts the request with the mapped status and error body.
// Internal causes are logged, never returned to the client.
func writeError(c *gin.Context, err error) {
	status, body := errorStatus(err)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("request_id", middleware.RequestIDFrom(c)),
		zap.String("code", body.Code),
	}
	if caller := middleware.CallerFrom(c); caller != nil {
		fields = append(fields, zap.Int64("telegram_id", caller.UserID))
	}

	log := logger.Logger()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Info("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}
