package app

import (
	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/errx"
)

// Code 是应用层错误码（贴近对外协议）。
type Code = errx.Code

// Error 复用通用错误模型：对外语义(code/msg)、上下文(data)、溯源链(cause)、系统错误一次栈(stack)。
type Error = errx.Error

// 战斗域业务错误直接复用领域层哨兵（code 即对外语义）。
var (
	ErrConflict          = domain.ErrConflict
	ErrInvalidPhase      = domain.ErrInvalidPhase
	ErrTerritoryCaptured = domain.ErrTerritoryCaptured
	ErrAlreadyInjured    = domain.ErrAlreadyInjured
	ErrSessionExists     = domain.ErrSessionExists
	ErrNoRollsRemaining  = domain.ErrNoRollsRemaining
	ErrDuplicatePledge   = domain.ErrDuplicatePledge
	ErrBattleNotFound    = domain.ErrBattleNotFound
	ErrSessionNotFound   = domain.ErrSessionNotFound
	ErrNotParticipant    = domain.ErrNotParticipant
)

// 系统类错误复用 kit 统一哨兵（跨服务一致，便于告警/排障）。
var (
	ErrUnavailable    = errx.ErrUnavailable
	ErrInternalServer = errx.ErrInternal
	ErrReqParamERR    = errx.ErrReqParamERR
)
