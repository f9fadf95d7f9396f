package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/logx"
)

// LifecycleService 是战斗生命周期管理：开战、报名、占领检查与触发结算。
// 阶段永远由时间推导，不存在定时器漂移问题。
type LifecycleService struct {
	battles      BattleRepo
	participants ParticipantRepo
	territories  TerritoryRepo
	resolution   *ResolutionService
	idGen        IDGen
	clock        Clock
	log          logx.Logger
	tunables     Tunables
}

func NewLifecycleService(
	battles BattleRepo,
	participants ParticipantRepo,
	territories TerritoryRepo,
	resolution *ResolutionService,
	idGen IDGen,
	clock Clock,
	log logx.Logger,
	tunables Tunables,
) *LifecycleService {
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleService{
		battles:      battles,
		participants: participants,
		territories:  territories,
		resolution:   resolution,
		idGen:        idGen,
		clock:        clock,
		log:          log,
		tunables:     tunables.withDefaults(),
	}
}

type OpenBattleReq struct {
	KingdomId     int64
	InitiatorId   int64
	Kind          domain.Kind
	FromKingdomId int64 // 仅 invasion
	PledgeWindow  time.Duration
}

// Open 开启一场战斗：目标王国已有未结算战斗时拒绝；入侵必须带发起方王国。
// 创建战斗与三块中立领地，并把发起人自动报名为进攻方。
func (s *LifecycleService) Open(ctx context.Context, req OpenBattleReq) (*domain.Battle, error) {
	if !req.Kind.Valid() || req.KingdomId <= 0 || req.InitiatorId <= 0 {
		return nil, ErrReqParamERR.WithData("kind", string(req.Kind))
	}
	if req.Kind == domain.KindInvasion && req.FromKingdomId <= 0 {
		return nil, ErrReqParamERR.WithData("reason", "invasion requires from_kingdom")
	}

	existing, err := s.battles.GetUnresolvedByKingdom(ctx, req.KingdomId)
	switch {
	case err == nil && existing != nil:
		return nil, ErrConflict.
			WithReason(ReasonBattleInProgress).
			WithData("kingdom_id", req.KingdomId).
			WithData("battle_id", existing.Id)
	case err != nil && !errors.Is(err, domain.ErrBattleNotFound):
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	id, err := s.idGen()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}

	window := req.PledgeWindow
	if window <= 0 {
		window = s.tunables.DefaultPledgeWindow
	}

	now := s.clock()
	b := &domain.Battle{
		Id:            id,
		KingdomId:     req.KingdomId,
		Kind:          req.Kind,
		InitiatorId:   req.InitiatorId,
		FromKingdomId: req.FromKingdomId,
		PledgeEndTime: now.Add(window),
	}

	territories := make([]domain.BattleTerritory, 0, domain.TerritoryCount)
	for slot := 0; slot < domain.TerritoryCount; slot++ {
		territories = append(territories, domain.BattleTerritory{
			BattleId: id,
			Slot:     slot,
			Control:  domain.ControlNeutral,
		})
	}

	if err := s.battles.Create(ctx, b, territories); err != nil {
		// 并发开战只有一个能赢（唯一索引兜底）。
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrConflict.WithReason(ReasonBattleInProgress).WithData("kingdom_id", req.KingdomId)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	// 发起人即进攻方第一人。
	if err := s.pledgeLocked(ctx, b, req.InitiatorId, domain.SideAttackers); err != nil {
		return nil, err
	}
	return b, nil
}

// Pledge 报名：仅报名阶段有效；重复报名同阵营幂等，切换阵营拒绝。
func (s *LifecycleService) Pledge(ctx context.Context, battleID, uid int64, side domain.Side) error {
	if !side.Valid() || battleID <= 0 || uid <= 0 {
		return ErrReqParamERR.WithData("side", string(side))
	}
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return err
	}
	if phase := b.PhaseAt(s.clock()); phase != domain.PhasePledging {
		return ErrInvalidPhase.
			WithReason(ReasonPledgeClosed).
			WithData("phase", string(phase)).
			WithData("pledge_end_time", b.PledgeEndTime)
	}
	return s.pledgeLocked(ctx, b, uid, side)
}

func (s *LifecycleService) pledgeLocked(ctx context.Context, b *domain.Battle, uid int64, side domain.Side) error {
	existing, err := s.participants.Get(ctx, b.Id, uid)
	switch {
	case err == nil && existing != nil:
		if existing.Side == side {
			// 幂等：重复报名同一阵营视为成功。
			return nil
		}
		return ErrDuplicatePledge.
			WithReason(ReasonSideSwitch).
			WithData("pledged_side", string(existing.Side))
	case err != nil && !errors.Is(err, domain.ErrNotParticipant):
		return ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	p := &domain.BattleParticipant{BattleId: b.Id, UId: uid, Side: side}
	if err := s.participants.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrDuplicatePledge) {
			// 唯一索引兜底：并发重复报名按已报名处理。
			return nil
		}
		return ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return nil
}

// CheckCaptureAndMaybeResolve 在每次领地落账后执行：某一方占领 2/3 领地即触发结算。
// 结算的幂等由结算记录守卫，重复触发是无害的。
func (s *LifecycleService) CheckCaptureAndMaybeResolve(ctx context.Context, battleID int64) error {
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return err
	}
	if b.Resolved() {
		return nil
	}

	territories, err := s.territories.ListByBattle(ctx, battleID)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	counts := map[domain.Side]int{}
	for _, t := range territories {
		if t.Captured() {
			counts[t.CapturedBy]++
		}
	}

	var winner domain.Side
	switch {
	case counts[domain.SideAttackers] >= 2:
		winner = domain.SideAttackers
	case counts[domain.SideDefenders] >= 2:
		winner = domain.SideDefenders
	default:
		return nil
	}

	if s.log != nil {
		s.log.WithContext(ctx).Info("capture majority reached, resolving battle",
			zap.Int64("battle_id", battleID),
			zap.String("winner_side", string(winner)),
		)
	}
	return s.resolution.Resolve(ctx, b, winner)
}

// BattleSummary 是对外的战斗快照：阶段由读取时刻重新计算。
type BattleSummary struct {
	Battle       *domain.Battle             `json:"battle"`
	Phase        domain.Phase               `json:"phase"`
	Deadline     time.Time                  `json:"deadline"`
	Territories  []domain.BattleTerritory   `json:"territories"`
	Participants []domain.BattleParticipant `json:"participants"`
}

func (s *LifecycleService) Summary(ctx context.Context, battleID int64) (*BattleSummary, error) {
	b, err := s.getBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	territories, err := s.territories.ListByBattle(ctx, battleID)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	participants, err := s.participants.ListByBattle(ctx, battleID)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return &BattleSummary{
		Battle:       b,
		Phase:        b.PhaseAt(s.clock()),
		Deadline:     b.PledgeEndTime,
		Territories:  territories,
		Participants: participants,
	}, nil
}

func (s *LifecycleService) getBattle(ctx context.Context, battleID int64) (*domain.Battle, error) {
	b, err := s.battles.Get(ctx, battleID)
	if err != nil {
		if errors.Is(err, domain.ErrBattleNotFound) {
			return nil, ErrBattleNotFound.WithData("battle_id", battleID)
		}
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return b, nil
}
