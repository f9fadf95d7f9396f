package app

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/logx"
)

// FightService 是战斗会话引擎：开场/掷骰/结算三段式，会话可断线恢复。
//
// 属性在开场时快照进会话，之后属性变化不影响已开的会话。
type FightService struct {
	battles      BattleRepo
	participants ParticipantRepo
	territories  TerritoryRepo
	sessions     SessionRepo
	actions      ActionRepo
	stats        StatsService
	ledger       *TerritoryLedger
	injuries     *InjuryTracker
	lifecycle    *LifecycleService
	queue        ConsequenceQueue
	roll         Roller
	idGen        IDGen
	clock        Clock
	log          logx.Logger
}

func NewFightService(
	battles BattleRepo,
	participants ParticipantRepo,
	territories TerritoryRepo,
	sessions SessionRepo,
	actions ActionRepo,
	stats StatsService,
	ledger *TerritoryLedger,
	injuries *InjuryTracker,
	lifecycle *LifecycleService,
	queue ConsequenceQueue,
	roll Roller,
	idGen IDGen,
	clock Clock,
	log logx.Logger,
) *FightService {
	if roll == nil {
		roll = func() int { return rand.Intn(100) }
	}
	if clock == nil {
		clock = time.Now
	}
	return &FightService{
		battles:      battles,
		participants: participants,
		territories:  territories,
		sessions:     sessions,
		actions:      actions,
		stats:        stats,
		ledger:       ledger,
		injuries:     injuries,
		lifecycle:    lifecycle,
		queue:        queue,
		roll:         roll,
		idGen:        idGen,
		clock:        clock,
		log:          log,
	}
}

// OpenSession 为报名者针对一块领地开启战斗会话。
// 已有会话直接返回（断线恢复），重伤未愈或领地已占领则拒绝。
func (s *FightService) OpenSession(ctx context.Context, battleID, uid, territoryID int64) (*domain.FightSession, error) {
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	switch b.PhaseAt(now) {
	case domain.PhasePledging:
		return nil, ErrInvalidPhase.WithReason(ReasonFightingNotBegun)
	case domain.PhaseResolved:
		return nil, ErrInvalidPhase.WithReason(ReasonBattleFinished)
	}

	part, err := s.participants.Get(ctx, battleID, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotParticipant) {
			return nil, ErrNotParticipant.WithData("battle_id", battleID)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	// 同一会话重复开场是恢复语义，先于伤情检查。
	existing, err := s.sessions.Get(ctx, battleID, uid)
	switch {
	case err == nil:
		if existing.TerritoryId == territoryID {
			return existing, nil
		}
		return nil, ErrSessionExists.WithData("territory_id", existing.TerritoryId)
	case !errors.Is(err, domain.ErrSessionNotFound):
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	blocked, expireAt, err := s.injuries.CheckBlocked(ctx, battleID, uid)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrAlreadyInjured.
			WithReason(ReasonInjuryActive).
			WithData("expire_at", expireAt.Unix())
	}

	territory, err := s.territories.Get(ctx, territoryID)
	if err != nil {
		if errors.Is(err, domain.ErrBattleNotFound) {
			return nil, ErrReqParamERR.WithData("territory_id", territoryID)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	if territory.BattleId != battleID {
		return nil, ErrReqParamERR.WithData("territory_id", territoryID)
	}
	if territory.Captured() {
		return nil, ErrTerritoryCaptured.WithData("captured_by", string(territory.CapturedBy))
	}

	// 开场即快照属性；属性服务失败时会话不能开，这里不做降级。
	combatStat, err := s.stats.CombatStat(ctx, uid, b.Kind)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonStatsUnavailable).WithCause(err)
	}
	oppDefense, err := s.opposingDefense(ctx, b, territoryID, part.Side)
	if err != nil {
		return nil, err
	}

	id, err := s.idGen()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}
	session := &domain.FightSession{
		Id:          id,
		BattleId:    battleID,
		UId:         uid,
		TerritoryId: territoryID,
		Side:        part.Side,
		MaxRolls:    1 + combatStat,
		CombatStat:  combatStat,
		HitChance:   domain.HitChanceFor(combatStat),
		OppDefense:  oppDefense,
		OpenControl: territory.Control,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		// 唯一索引兜底：并发开场时读回已有会话。
		if raced, gerr := s.sessions.Get(ctx, battleID, uid); gerr == nil {
			if raced.TerritoryId == territoryID {
				return raced, nil
			}
			return nil, ErrSessionExists.WithData("territory_id", raced.TerritoryId)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	s.log.WithContext(ctx).Info("fight session opened",
		zap.Int64("battle_id", battleID),
		zap.Int64("uid", uid),
		zap.Int64("territory_id", territoryID),
		zap.Int("max_rolls", session.MaxRolls),
		zap.Int("hit_chance", session.HitChance))
	return session, nil
}

// Roll 消耗一次掷骰预算并记录结果；预算耗尽时自动转入结算。
//
// 返回的 auto 表示本次掷骰触发了自动结算，resolved 为结算产物（auto 为 false 时为 nil）。
func (s *FightService) Roll(ctx context.Context, battleID, uid int64) (session *domain.FightSession, outcome domain.Outcome, auto bool, resolved *SessionResult, err error) {
	session, err = s.getSession(ctx, battleID, uid)
	if err != nil {
		return nil, "", false, nil, err
	}
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return nil, "", false, nil, err
	}
	if b.Resolved() {
		return nil, "", false, nil, ErrInvalidPhase.WithReason(ReasonBattleFinished)
	}
	if session.RollsRemaining() <= 0 {
		return nil, "", false, nil, ErrNoRollsRemaining.WithData("max_rolls", session.MaxRolls)
	}

	draw := s.roll()
	outcome = domain.ClassifyRoll(draw, session.HitChance, session.OppDefense)
	session.Record(outcome)
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, "", false, nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	if session.RollsRemaining() == 0 {
		res, rerr := s.resolve(ctx, b, session)
		if rerr != nil {
			return nil, "", false, nil, rerr
		}
		return session, outcome, true, res, nil
	}
	return session, outcome, false, nil, nil
}

// SessionResult 是一次会话结算的产物。
type SessionResult struct {
	Session     *domain.FightSession
	Outcome     domain.Outcome
	Push        int
	Before      int
	After       int
	CapturedBy  domain.Side
	InjuredUser int64
}

// ResolveSession 显式结算当前会话；至少掷骰一次。
func (s *FightService) ResolveSession(ctx context.Context, battleID, uid int64) (*SessionResult, error) {
	session, err := s.getSession(ctx, battleID, uid)
	if err != nil {
		return nil, err
	}
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	// 战斗结算后遗留的开放会话随之作废，推力不再落账。
	if b.Resolved() {
		return nil, ErrInvalidPhase.WithReason(ReasonBattleFinished)
	}
	if session.RollCount() == 0 {
		return nil, ErrReqParamERR.WithReason(ReasonNoRollsYet)
	}
	return s.resolve(ctx, b, session)
}

// Session 返回玩家当前会话（断线恢复查询）。
func (s *FightService) Session(ctx context.Context, battleID, uid int64) (*domain.FightSession, error) {
	return s.getSession(ctx, battleID, uid)
}

// resolve 把会话的最优结果落账：推挤领地、必要时记重伤、写日志行、删除会话。
//
// 领地在会话进行期间被占领时不算失败：会话以零推力完结，玩家可转战其他领地。
func (s *FightService) resolve(ctx context.Context, b *domain.Battle, session *domain.FightSession) (*SessionResult, error) {
	res := &SessionResult{
		Session: session,
		Outcome: session.BestOutcome,
		Push:    session.BestPush,
	}

	var pushed *PushResult
	if session.BestPush > 0 {
		var err error
		pushed, err = s.ledger.ApplyPush(ctx, session.TerritoryId, session.Side, session.BestPush)
		if err != nil {
			if errors.Is(err, ErrTerritoryCaptured) {
				s.log.WithContext(ctx).Info("territory captured before session settled, push discarded",
					zap.Int64("battle_id", b.Id),
					zap.Int64("uid", session.UId),
					zap.Int64("territory_id", session.TerritoryId))
				res.Push = 0
			} else {
				return nil, err
			}
		}
	}
	if pushed != nil {
		res.Before = pushed.Before
		res.After = pushed.After
		res.CapturedBy = pushed.CapturedBy
	} else {
		cur, err := s.territories.Get(ctx, session.TerritoryId)
		if err != nil {
			return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
		}
		res.Before = cur.Control
		res.After = cur.Control
	}

	actionID, err := s.idGen()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}

	// injure 的最优结果使对面同领地最近开场的会话持有者重伤。
	var injuryID *int64
	if session.BestOutcome == domain.OutcomeInjure {
		victim, err := s.pickInjureVictim(ctx, session)
		if err != nil {
			return nil, err
		}
		if victim != 0 {
			injury, err := s.injuries.Injure(ctx, b.Id, victim, session.UId, actionID)
			if err != nil {
				return nil, err
			}
			injuryID = &injury.Id
			res.InjuredUser = victim
		}
	}

	appliedPush := 0
	if pushed != nil {
		appliedPush = pushed.Delta
	}
	action := &domain.BattleAction{
		Id:            actionID,
		BattleId:      b.Id,
		TerritoryId:   session.TerritoryId,
		UId:           session.UId,
		Side:          session.Side,
		RollCount:     session.RollCount(),
		RollSeq:       session.RollSeq,
		BestOutcome:   session.BestOutcome,
		Push:          appliedPush,
		ControlBefore: res.Before,
		ControlAfter:  res.After,
		InjuryId:      injuryID,
	}
	// 推力已落账，日志行与会话清理失败不能回滚：转入后果队列补偿，
	// 否则回放日志会缺行、会话残留会被二次结算。
	if err := s.actions.Create(ctx, action); err != nil {
		s.log.WithContext(ctx).Warn("battle action write failed, queued for retry",
			zap.Int64("battle_id", b.Id),
			zap.Int64("action_id", actionID),
			zap.Error(err))
		s.queue.Enqueue(ConsequenceTask{
			Kind:     TaskRecordAction,
			BattleId: b.Id,
			Payload:  actionPayload(action),
		})
	}

	if err := s.sessions.Delete(ctx, session.Id); err != nil {
		s.log.WithContext(ctx).Warn("session cleanup failed, queued for retry",
			zap.Int64("battle_id", b.Id),
			zap.Int64("session_id", session.Id),
			zap.Error(err))
		s.queue.Enqueue(ConsequenceTask{
			Kind:     TaskDeleteSession,
			BattleId: b.Id,
			Payload:  map[string]any{"session_id": session.Id},
		})
	}

	s.log.WithContext(ctx).Info("fight session settled",
		zap.Int64("battle_id", b.Id),
		zap.Int64("uid", session.UId),
		zap.String("best_outcome", string(session.BestOutcome)),
		zap.Int("push", appliedPush),
		zap.Int("control_after", res.After))

	// 推挤可能触发 2/3 占领；结算检查失败只记日志，下一次推挤会再触发。
	if pushed != nil && pushed.CapturedBy != "" {
		if err := s.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
			s.log.WithContext(ctx).Error("battle resolution check failed after capture",
				zap.Int64("battle_id", b.Id), zap.Error(err))
		}
	}
	return res, nil
}

// opposingDefense 取对面开放会话持有者的平均防御；对面无人时用常备守军顶替。
func (s *FightService) opposingDefense(ctx context.Context, b *domain.Battle, territoryID int64, side domain.Side) (int, error) {
	open, err := s.sessions.ListOpenByTerritory(ctx, territoryID)
	if err != nil {
		return 0, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	var total, n int
	for _, sess := range open {
		if sess.Side != side.Opponent() {
			continue
		}
		d, derr := s.stats.DefenseStat(ctx, sess.UId)
		if derr != nil {
			return 0, ErrUnavailable.WithReason(ReasonStatsUnavailable).WithCause(derr)
		}
		total += d
		n++
	}
	if n > 0 {
		return total / n, nil
	}
	// 防守侧无人应战时由守军顶替；进攻侧无人则没有抵抗。
	if side == domain.SideAttackers {
		g, gerr := s.stats.Garrison(ctx, b.KingdomId)
		if gerr != nil {
			return 0, ErrUnavailable.WithReason(ReasonStatsUnavailable).WithCause(gerr)
		}
		return g.Defense, nil
	}
	return 0, nil
}

// pickInjureVictim 选择重伤对象：对面同领地最近开场的会话持有者；对面无人则无人受伤。
func (s *FightService) pickInjureVictim(ctx context.Context, session *domain.FightSession) (int64, error) {
	open, err := s.sessions.ListOpenByTerritory(ctx, session.TerritoryId)
	if err != nil {
		return 0, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	for _, sess := range open {
		if sess.Side == session.Side.Opponent() {
			return sess.UId, nil
		}
	}
	return 0, nil
}

// actionPayload 把日志行铺平成任务载荷，补偿执行时按字段还原。
func actionPayload(a *domain.BattleAction) map[string]any {
	p := map[string]any{
		"id":             a.Id,
		"battle_id":      a.BattleId,
		"territory_id":   a.TerritoryId,
		"uid":            a.UId,
		"side":           string(a.Side),
		"roll_count":     a.RollCount,
		"roll_seq":       a.RollSeq,
		"best_outcome":   string(a.BestOutcome),
		"push":           a.Push,
		"control_before": a.ControlBefore,
		"control_after":  a.ControlAfter,
	}
	if a.InjuryId != nil {
		p["injury_id"] = *a.InjuryId
	}
	return p
}

func (s *FightService) getBattle(ctx context.Context, battleID int64) (*domain.Battle, error) {
	b, err := s.battles.Get(ctx, battleID)
	if err != nil {
		if errors.Is(err, domain.ErrBattleNotFound) {
			return nil, ErrBattleNotFound.WithData("battle_id", battleID)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return b, nil
}

func (s *FightService) getSession(ctx context.Context, battleID, uid int64) (*domain.FightSession, error) {
	session, err := s.sessions.Get(ctx, battleID, uid)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, ErrSessionNotFound.WithData("battle_id", battleID)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return session, nil
}
