package app

import (
	"context"
	"time"

	"KingdomWars/internal/battle/domain"
)

// InjuryTracker 管理短时战斗减员。
// 同一 (battle, victim) 最多一条未清除记录：再次受伤刷新过期时间，不叠加。
type InjuryTracker struct {
	injuries InjuryRepo
	clock    Clock
	duration time.Duration
}

func NewInjuryTracker(injuries InjuryRepo, clock Clock, duration time.Duration) *InjuryTracker {
	if clock == nil {
		clock = time.Now
	}
	if duration <= 0 {
		duration = domain.DefaultInjuryDuration
	}
	return &InjuryTracker{
		injuries: injuries,
		clock:    clock,
		duration: duration,
	}
}

// Injure 记录一次重伤；已有未清除记录时刷新而不是新增。
func (t *InjuryTracker) Injure(ctx context.Context, battleID, victimID, injurerID, actionID int64) (*domain.BattleInjury, error) {
	now := t.clock()

	existing, err := t.injuries.GetUncleared(ctx, battleID, victimID)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	if existing != nil {
		existing.InjurerId = injurerID
		existing.ActionId = actionID
		existing.ExpireAt = now.Add(t.duration)
		if err := t.injuries.Refresh(ctx, existing); err != nil {
			return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
		}
		return existing, nil
	}

	injury := &domain.BattleInjury{
		BattleId:  battleID,
		VictimId:  victimID,
		InjurerId: injurerID,
		ActionId:  actionID,
		ExpireAt:  now.Add(t.duration),
	}
	if err := t.injuries.Create(ctx, injury); err != nil {
		return nil, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	return injury, nil
}

// CheckBlocked 返回当前是否因重伤被阻止开启会话。
// 自然过期但未清除的记录会在此处顺带清除（伤者首次尝试开场时落账）。
func (t *InjuryTracker) CheckBlocked(ctx context.Context, battleID, uid int64) (blocked bool, expireAt time.Time, err error) {
	injury, err := t.injuries.GetUncleared(ctx, battleID, uid)
	if err != nil {
		return false, time.Time{}, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
	}
	if injury == nil {
		return false, time.Time{}, nil
	}

	now := t.clock()
	if injury.Blocking(now) {
		return true, injury.ExpireAt, nil
	}
	if injury.Expired(now) {
		if err := t.injuries.Clear(ctx, injury.Id, now); err != nil {
			return false, time.Time{}, ErrUnavailable.WithReason(ReasonRepoUnavailable).WithCause(err)
		}
	}
	return false, time.Time{}, nil
}
