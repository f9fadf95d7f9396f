package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/logx"
)

const (
	ledgerMaxAttempts = 3
	ledgerBackoffStep = 10 * time.Millisecond
)

// PushResult 是一次推挤的落账结果。
type PushResult struct {
	TerritoryId int64
	Slot        int
	Delta       int
	Before      int
	After       int
	CapturedBy  domain.Side
}

// TerritoryLedger 是领地控制账本：同一领地的并发推挤由乐观锁 CAS 串行化，
// 版本冲突在内部重试，重试耗尽才对外暴露为系统不可用。
type TerritoryLedger struct {
	territories TerritoryRepo
	publisher   Publisher
	log         logx.Logger
	clock       Clock
	sleep       func(time.Duration) // 测试可注入
}

func NewTerritoryLedger(territories TerritoryRepo, publisher Publisher, log logx.Logger, clock Clock) *TerritoryLedger {
	if clock == nil {
		clock = time.Now
	}
	return &TerritoryLedger{
		territories: territories,
		publisher:   publisher,
		log:         log,
		clock:       clock,
		sleep:       time.Sleep,
	}
}

// ApplyPush 读取当前控制值、按边界截断写入新值，到达边界时冻结并记录占领。
// 已占领的领地拒绝任何后续推挤。
func (l *TerritoryLedger) ApplyPush(ctx context.Context, territoryID int64, side domain.Side, amount int) (*PushResult, error) {
	delta := domain.SignedDelta(side, amount)

	for attempt := 1; attempt <= ledgerMaxAttempts; attempt++ {
		cur, err := l.territories.Get(ctx, territoryID)
		if err != nil {
			return nil, err
		}
		if cur.Captured() {
			return nil, ErrTerritoryCaptured.
				WithData("territory_id", territoryID).
				WithData("captured_by", string(cur.CapturedBy))
		}

		before, after, capturedBy := cur.ApplyDelta(delta)

		var capturedAt *time.Time
		if capturedBy != "" {
			now := l.clock()
			capturedAt = &now
		}

		swapped, err := l.territories.CompareAndSwap(ctx, *cur, after, capturedBy, capturedAt)
		if err != nil {
			return nil, err
		}
		if !swapped {
			// 版本冲突：别的推挤先落账了，退避后基于新值重算。
			l.sleep(ledgerBackoffStep * time.Duration(attempt))
			continue
		}

		res := &PushResult{
			TerritoryId: cur.Id,
			Slot:        cur.Slot,
			Delta:       delta,
			Before:      before,
			After:       after,
			CapturedBy:  capturedBy,
		}
		if l.publisher != nil {
			l.publisher.PublishTerritory(cur.BattleId, TerritoryUpdate{
				BattleId:    cur.BattleId,
				TerritoryId: cur.Id,
				Slot:        cur.Slot,
				Control:     after,
				CapturedBy:  capturedBy,
			})
		}
		return res, nil
	}

	if l.log != nil {
		l.log.WithContext(ctx).Warn("territory push retries exhausted",
			zap.Int64("territory_id", territoryID),
			zap.Int("attempts", ledgerMaxAttempts),
		)
	}
	return nil, ErrUnavailable.
		WithReason(ReasonLedgerContention).
		WithData("territory_id", territoryID)
}
