package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/battle/domain"
	"KingdomWars/internal/shared/transport/http/middleware"
	"KingdomWars/modules/kit/errx"
	"KingdomWars/modules/kit/logx"
	"KingdomWars/modules/kit/tracex"
)

// Battle 承接战斗生命周期的 HTTP 入口。
type Battle struct {
	lifecycle *app.LifecycleService
	log       logx.Logger
}

func NewBattle(lifecycle *app.LifecycleService, log logx.Logger) *Battle {
	return &Battle{
		lifecycle: lifecycle,
		log:       log,
	}
}

func (h *Battle) Open(c *gin.Context) {
	ctx := tracex.WithSpanID(c.Request.Context(), "battle")
	uid, ok := middleware.UIDFrom(c)
	if !ok {
		respondError(c, app.ErrReqParamERR.WithData("reason", "missing uid"))
		return
	}

	var req OpenBattleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, app.ErrReqParamERR.WithCause(err))
		return
	}

	b, err := h.lifecycle.Open(ctx, app.OpenBattleReq{
		KingdomId:     req.KingdomId,
		InitiatorId:   uid,
		Kind:          domain.Kind(req.Kind),
		FromKingdomId: req.FromKingdomId,
		PledgeWindow:  time.Duration(req.PledgeMinutes) * time.Minute,
	})
	if err != nil {
		h.report(ctx, "battle open", err)
		respondError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Battle) Pledge(c *gin.Context) {
	ctx := tracex.WithSpanID(c.Request.Context(), "battle")
	uid, ok := middleware.UIDFrom(c)
	if !ok {
		respondError(c, app.ErrReqParamERR.WithData("reason", "missing uid"))
		return
	}
	battleID, ok := battleIDParam(c)
	if !ok {
		respondError(c, app.ErrReqParamERR.WithData("reason", "invalid battle id"))
		return
	}

	var req PledgeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, app.ErrReqParamERR.WithCause(err))
		return
	}

	if err := h.lifecycle.Pledge(ctx, battleID, uid, domain.Side(req.Side)); err != nil {
		h.report(ctx, "battle pledge", err)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"battle_id": battleID, "side": req.Side})
}

func (h *Battle) Summary(c *gin.Context) {
	ctx := tracex.WithSpanID(c.Request.Context(), "battle")
	battleID, ok := battleIDParam(c)
	if !ok {
		respondError(c, app.ErrReqParamERR.WithData("reason", "invalid battle id"))
		return
	}

	s, err := h.lifecycle.Summary(ctx, battleID)
	if err != nil {
		h.report(ctx, "battle summary", err)
		respondError(c, err)
		return
	}
	respondOK(c, s)
}

// report 按错误类型分流日志：业务拒绝 WARN，技术错误 ERROR 带溯源。
func (h *Battle) report(ctx context.Context, action string, err error) {
	reportError(ctx, h.log, action, err)
}

func reportError(ctx context.Context, log logx.Logger, action string, err error) {
	if errx.IsBiz(err) {
		var e *errx.Error
		errors.As(err, &e)
		logx.ReportBizError(ctx, log, logx.NewBizLog(action+" reject", e.Reason(), e.Error()))
		return
	}
	logx.ReportSysError(ctx, log, logx.NewSysLog(action+" tech error", err))
}

// battleIDParam 解析路径里的战斗 ID。
func battleIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
