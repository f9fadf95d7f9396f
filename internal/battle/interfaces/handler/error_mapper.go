package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/shared/transport"
	"KingdomWars/modules/kit/errx"
)

// respondError 把应用层错误翻译到 HTTP：
// 业务拒绝回 4xx + 稳定错误码，技术错误只暴露 code，细节留在服务端日志。
func respondError(c *gin.Context, err error) {
	status := httpStatusFor(err)

	bizCode := transport.BizReject
	if status >= http.StatusInternalServerError {
		bizCode = transport.SystemError
	}

	var e *errx.Error
	code := ""
	msg := err.Error()
	if errors.As(err, &e) {
		code = e.CodeText()
		if status >= http.StatusInternalServerError {
			// 技术错误不回传 cause 链
			msg = e.CodeText()
		}
	}

	c.JSON(status, gin.H{
		"code":  bizCode,
		"error": code,
		"msg":   msg,
	})
}

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrBattleNotFound), errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, app.ErrConflict),
		errors.Is(err, app.ErrDuplicatePledge),
		errors.Is(err, app.ErrSessionExists),
		errors.Is(err, app.ErrTerritoryCaptured):
		return http.StatusConflict
	case errors.Is(err, app.ErrInvalidPhase),
		errors.Is(err, app.ErrAlreadyInjured),
		errors.Is(err, app.ErrNoRollsRemaining),
		errors.Is(err, app.ErrReqParamERR):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
