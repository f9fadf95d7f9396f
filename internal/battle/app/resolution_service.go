package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/logx"
)

// ResolutionService 负责战斗终局：一次且仅一次地落定胜负并执行统治变更与赏金划转。
//
// 并发安全由 ResolutionRepo.Commit 的 resolved_at IS NULL 守卫兜底：
// 多个触发方同时进入时只有一个事务写入成功，其余视为幂等成功。
type ResolutionService struct {
	battles      BattleRepo
	participants ParticipantRepo
	stats        StatsService
	registry     KingdomRegistry
	treasury     Treasury
	notifier     Notifier
	resolutions  ResolutionRepo
	queue        ConsequenceQueue
	publisher    Publisher
	archiver     Archiver
	clock        Clock
	log          logx.Logger
	tunables     Tunables
}

func NewResolutionService(
	battles BattleRepo,
	participants ParticipantRepo,
	stats StatsService,
	registry KingdomRegistry,
	treasury Treasury,
	notifier Notifier,
	resolutions ResolutionRepo,
	queue ConsequenceQueue,
	publisher Publisher,
	archiver Archiver,
	clock Clock,
	log logx.Logger,
	tunables Tunables,
) *ResolutionService {
	if clock == nil {
		clock = time.Now
	}
	return &ResolutionService{
		battles:      battles,
		participants: participants,
		stats:        stats,
		registry:     registry,
		treasury:     treasury,
		notifier:     notifier,
		resolutions:  resolutions,
		queue:        queue,
		publisher:    publisher,
		archiver:     archiver,
		clock:        clock,
		log:          log,
		tunables:     tunables.withDefaults(),
	}
}

// Resolve 结算一场战斗。battle 已被调用方读出；重复触发时幂等返回 nil。
func (s *ResolutionService) Resolve(ctx context.Context, b *domain.Battle, winner domain.Side) error {
	if b.Resolved() {
		return nil
	}

	parts, err := s.participants.ListByBattle(ctx, b.Id)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	var attackers, defenders []int64
	for _, p := range parts {
		if p.Side == domain.SideAttackers {
			attackers = append(attackers, p.UId)
		} else {
			defenders = append(defenders, p.UId)
		}
	}

	// 战力合计只做审计记录，单个属性查询失败记 0 并告警，不阻塞结算。
	attackerStrength := s.tallyStrength(ctx, b, attackers)
	defenderStrength := s.tallyStrength(ctx, b, defenders)
	wallBonus, err := s.registry.WallBonus(ctx, b.KingdomId)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonRegistryUnavailable).WithCause(err)
	}
	if len(defenders) == 0 {
		g, gerr := s.stats.Garrison(ctx, b.KingdomId)
		if gerr != nil {
			s.log.WithContext(ctx).Warn("garrison stats unavailable, audit tally recorded as zero",
				zap.Int64("battle_id", b.Id), zap.Error(gerr))
		} else {
			defenderStrength += int64(g.Strength)
		}
	}
	defenderStrength += wallBonus

	winners := attackers
	if winner == domain.SideDefenders {
		winners = defenders
	}
	var goldPer int64
	if len(winners) > 0 {
		goldPer = s.tunables.SpoilsPool / int64(len(winners))
	}

	oldRuler, err := s.registry.Ruler(ctx, b.KingdomId)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonRegistryUnavailable).WithCause(err)
	}
	oldEmpire, err := s.registry.Empire(ctx, b.KingdomId)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonRegistryUnavailable).WithCause(err)
	}

	now := s.clock()
	commit := ResolutionCommit{
		BattleId:         b.Id,
		KingdomId:        b.KingdomId,
		ResolvedAt:       now,
		WinnerSide:       winner,
		AttackerStrength: attackerStrength,
		DefenderStrength: defenderStrength,
		WallBonus:        wallBonus,
		GoldPerWinner:    goldPer,
	}
	// 统治变更只发生在进攻方获胜时：政变换统治者，入侵再把王国并入来犯方所属的帝国。
	if winner == domain.SideAttackers {
		newEmpire := oldEmpire
		if b.Kind == domain.KindInvasion {
			// FromKingdomId 是王国，不是帝国；归属取它所在的帝国。
			newEmpire, err = s.registry.Empire(ctx, b.FromKingdomId)
			if err != nil {
				return ErrUnavailable.WithReason(ReasonRegistryUnavailable).WithCause(err)
			}
		}
		commit.Mutate = true
		commit.History = domain.KingdomHistoryEntry{
			KingdomId:   b.KingdomId,
			BattleId:    b.Id,
			OldRulerId:  oldRuler,
			NewRulerId:  b.InitiatorId,
			OldEmpireId: oldEmpire,
			NewEmpireId: newEmpire,
		}
	}

	if err := s.resolutions.Commit(ctx, commit); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return nil
		}
		return ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}

	b.ResolvedAt = &now
	b.WinnerSide = winner
	b.AttackerStrength = attackerStrength
	b.DefenderStrength = defenderStrength
	b.WallBonus = wallBonus
	b.GoldPerWinner = goldPer

	s.log.WithContext(ctx).Info("battle resolved",
		zap.Int64("battle_id", b.Id),
		zap.String("winner_side", string(winner)),
		zap.Int64("gold_per_winner", goldPer),
		zap.Int("winner_count", len(winners)))

	// 结算事务之外的副作用：失败不回滚结算，转入后果队列重试。
	s.settleSpoils(ctx, b, winners, goldPer)
	s.notifyDefeat(ctx, b, oldRuler, winner)

	// 归档尽力而为。
	if s.archiver != nil {
		if err := s.archiver.ArchiveResolution(ctx, ResolutionArchive{
			BattleId:         b.Id,
			KingdomId:        b.KingdomId,
			Kind:             b.Kind,
			WinnerSide:       winner,
			AttackerStrength: attackerStrength,
			DefenderStrength: defenderStrength,
			WallBonus:        wallBonus,
			GoldPerWinner:    goldPer,
			ResolvedAt:       now,
		}); err != nil {
			s.log.WithContext(ctx).Warn("resolution archive failed",
				zap.Int64("battle_id", b.Id), zap.Error(err))
		}
	}

	s.publisher.PublishResolution(b.Id, ResolutionUpdate{
		BattleId:      b.Id,
		WinnerSide:    winner,
		GoldPerWinner: goldPer,
		ResolvedAt:    now,
	})
	return nil
}

func (s *ResolutionService) tallyStrength(ctx context.Context, b *domain.Battle, uids []int64) int64 {
	var total int64
	for _, uid := range uids {
		stat, err := s.stats.CombatStat(ctx, uid, b.Kind)
		if err != nil {
			s.log.WithContext(ctx).Warn("combat stat unavailable, audit tally recorded as zero",
				zap.Int64("battle_id", b.Id), zap.Int64("uid", uid), zap.Error(err))
			continue
		}
		total += int64(stat)
	}
	return total
}

// settleSpoils 从目标王国金库划出赏金并逐人入账。
func (s *ResolutionService) settleSpoils(ctx context.Context, b *domain.Battle, winners []int64, goldPer int64) {
	if goldPer <= 0 || len(winners) == 0 {
		return
	}
	total := goldPer * int64(len(winners))
	if err := s.treasury.Debit(ctx, b.KingdomId, total); err != nil {
		s.log.WithContext(ctx).Warn("treasury debit failed, queued for retry",
			zap.Int64("battle_id", b.Id), zap.Int64("amount", total), zap.Error(err))
		s.queue.Enqueue(ConsequenceTask{
			Kind:     TaskTreasuryDebit,
			BattleId: b.Id,
			Payload:  map[string]any{"account": b.KingdomId, "amount": total},
		})
	}
	for _, uid := range winners {
		if err := s.treasury.Credit(ctx, uid, goldPer); err != nil {
			s.log.WithContext(ctx).Warn("treasury credit failed, queued for retry",
				zap.Int64("battle_id", b.Id), zap.Int64("uid", uid), zap.Error(err))
			s.queue.Enqueue(ConsequenceTask{
				Kind:     TaskTreasuryCredit,
				BattleId: b.Id,
				Payload:  map[string]any{"account": uid, "amount": goldPer},
			})
		}
	}
}

func (s *ResolutionService) notifyDefeat(ctx context.Context, b *domain.Battle, oldRuler int64, winner domain.Side) {
	if winner != domain.SideAttackers {
		return
	}
	notice := DefeatNotice{
		BattleId:   b.Id,
		KingdomId:  b.KingdomId,
		RulerId:    oldRuler,
		WinnerSide: winner,
	}
	if err := s.notifier.NotifyDefeat(ctx, notice); err != nil {
		s.log.WithContext(ctx).Warn("defeat notification failed, queued for retry",
			zap.Int64("battle_id", b.Id), zap.Int64("ruler_id", oldRuler), zap.Error(err))
		s.queue.Enqueue(ConsequenceTask{
			Kind:     TaskNotifyDefeat,
			BattleId: b.Id,
			Payload:  map[string]any{"kingdom_id": b.KingdomId, "ruler_id": oldRuler, "winner_side": string(winner)},
		})
	}
}
