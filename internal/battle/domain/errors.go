package domain

import "KingdomWars/modules/kit/errx"

// Code 是战斗域错误码（对外语义的唯一来源之一）。
//
// 约定：
// - 领域层只关心“是什么错”（code）与“业务上下文”（data）
// - cause 仅用于溯源/日志，不参与对外语义
type Code = errx.Code

const (
	CodeConflict          Code = "BATTLE_CONFLICT"
	CodeInvalidPhase      Code = "BATTLE_INVALID_PHASE"
	CodeTerritoryCaptured Code = "BATTLE_TERRITORY_CAPTURED"
	CodeAlreadyInjured    Code = "BATTLE_ALREADY_INJURED"
	CodeSessionExists     Code = "BATTLE_SESSION_EXISTS"
	CodeNoRollsRemaining  Code = "BATTLE_NO_ROLLS_REMAINING"
	CodeDuplicatePledge   Code = "BATTLE_DUPLICATE_PLEDGE"
	CodeBattleNotFound    Code = "BATTLE_NOT_FOUND"
	CodeSessionNotFound   Code = "BATTLE_SESSION_NOT_FOUND"
	CodeNotParticipant    Code = "BATTLE_NOT_PARTICIPANT"
	CodeAlreadyResolved   Code = "BATTLE_ALREADY_RESOLVED"
	// CodeSystemUnavailable 复用 kit 的统一系统码（跨服务一致，便于告警/排障）。
	CodeSystemUnavailable Code = errx.CodeUnavailable
)

// Error 复用通用错误模型：领域层通常不需要 msg，但可以携带 code/data/cause/stack。
type Error = errx.Error

var (
	ErrConflict          = errx.NewBiz(CodeConflict, "")
	ErrInvalidPhase      = errx.NewBiz(CodeInvalidPhase, "")
	ErrTerritoryCaptured = errx.NewBiz(CodeTerritoryCaptured, "")
	ErrAlreadyInjured    = errx.NewBiz(CodeAlreadyInjured, "")
	ErrSessionExists     = errx.NewBiz(CodeSessionExists, "")
	ErrNoRollsRemaining  = errx.NewBiz(CodeNoRollsRemaining, "")
	ErrDuplicatePledge   = errx.NewBiz(CodeDuplicatePledge, "")
	ErrBattleNotFound    = errx.NewBiz(CodeBattleNotFound, "")
	ErrSessionNotFound   = errx.NewBiz(CodeSessionNotFound, "")
	ErrNotParticipant    = errx.NewBiz(CodeNotParticipant, "")
	ErrAlreadyResolved   = errx.NewBiz(CodeAlreadyResolved, "")
	ErrSystemUnavailable = errx.ErrUnavailable
)
