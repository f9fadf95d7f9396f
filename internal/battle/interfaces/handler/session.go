package handler

import (
	"github.com/gin-gonic/gin"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/shared/transport/http/middleware"
	"KingdomWars/modules/kit/logx"
	"KingdomWars/modules/kit/tracex"
)

// Session 承接战斗会话的 HTTP 入口：开场、掷骰、结算、恢复查询。
type Session struct {
	fight *app.FightService
	log   logx.Logger
}

func NewSession(fight *app.FightService, log logx.Logger) *Session {
	return &Session{
		fight: fight,
		log:   log,
	}
}

func (h *Session) Open(c *gin.Context) {
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

	var req OpenSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, app.ErrReqParamERR.WithCause(err))
		return
	}

	session, err := h.fight.OpenSession(ctx, battleID, uid, req.TerritoryId)
	if err != nil {
		reportError(ctx, h.log, "session open", err)
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

func (h *Session) Get(c *gin.Context) {
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

	session, err := h.fight.Session(ctx, battleID, uid)
	if err != nil {
		reportError(ctx, h.log, "session get", err)
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

func (h *Session) Roll(c *gin.Context) {
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

	session, outcome, auto, resolved, err := h.fight.Roll(ctx, battleID, uid)
	if err != nil {
		reportError(ctx, h.log, "session roll", err)
		respondError(c, err)
		return
	}

	payload := gin.H{
		"outcome":         outcome,
		"rolls_remaining": session.RollsRemaining(),
		"best_outcome":    session.BestOutcome,
		"auto_resolved":   auto,
	}
	if auto {
		payload["result"] = sessionResultView(resolved)
	}
	respondOK(c, payload)
}

func (h *Session) Resolve(c *gin.Context) {
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

	res, err := h.fight.ResolveSession(ctx, battleID, uid)
	if err != nil {
		reportError(ctx, h.log, "session resolve", err)
		respondError(c, err)
		return
	}
	respondOK(c, sessionResultView(res))
}

func sessionResultView(res *app.SessionResult) gin.H {
	return gin.H{
		"outcome":        res.Outcome,
		"push":           res.Push,
		"control_before": res.Before,
		"control_after":  res.After,
		"captured_by":    res.CapturedBy,
		"injured_user":   res.InjuredUser,
	}
}
