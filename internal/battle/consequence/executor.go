package consequence

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/battle/domain"
)

// Executor 把任务还原为具体副作用并执行。
type Executor struct {
	treasury app.Treasury
	notifier app.Notifier
	actions  app.ActionRepo
	sessions app.SessionRepo
}

func NewExecutor(treasury app.Treasury, notifier app.Notifier, actions app.ActionRepo, sessions app.SessionRepo) *Executor {
	return &Executor{
		treasury: treasury,
		notifier: notifier,
		actions:  actions,
		sessions: sessions,
	}
}

type treasuryPayload struct {
	Account int64 `mapstructure:"account"`
	Amount  int64 `mapstructure:"amount"`
}

type noticePayload struct {
	KingdomId  int64  `mapstructure:"kingdom_id"`
	RulerId    int64  `mapstructure:"ruler_id"`
	WinnerSide string `mapstructure:"winner_side"`
}

type actionPayload struct {
	Id            int64  `mapstructure:"id"`
	BattleId      int64  `mapstructure:"battle_id"`
	TerritoryId   int64  `mapstructure:"territory_id"`
	UId           int64  `mapstructure:"uid"`
	Side          string `mapstructure:"side"`
	RollCount     int    `mapstructure:"roll_count"`
	RollSeq       string `mapstructure:"roll_seq"`
	BestOutcome   string `mapstructure:"best_outcome"`
	Push          int    `mapstructure:"push"`
	ControlBefore int    `mapstructure:"control_before"`
	ControlAfter  int    `mapstructure:"control_after"`
	InjuryId      *int64 `mapstructure:"injury_id"`
}

type sessionPayload struct {
	SessionId int64 `mapstructure:"session_id"`
}

func (e *Executor) Execute(ctx context.Context, task app.ConsequenceTask) error {
	switch task.Kind {
	case app.TaskTreasuryDebit:
		var p treasuryPayload
		if err := mapstructure.Decode(task.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Kind, err)
		}
		return e.treasury.Debit(ctx, p.Account, p.Amount)

	case app.TaskTreasuryCredit:
		var p treasuryPayload
		if err := mapstructure.Decode(task.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Kind, err)
		}
		return e.treasury.Credit(ctx, p.Account, p.Amount)

	case app.TaskNotifyDefeat:
		var p noticePayload
		if err := mapstructure.Decode(task.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Kind, err)
		}
		return e.notifier.NotifyDefeat(ctx, app.DefeatNotice{
			BattleId:   task.BattleId,
			KingdomId:  p.KingdomId,
			RulerId:    p.RulerId,
			WinnerSide: domain.Side(p.WinnerSide),
		})

	case app.TaskRecordAction:
		var p actionPayload
		if err := mapstructure.Decode(task.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Kind, err)
		}
		return e.actions.Create(ctx, &domain.BattleAction{
			Id:            p.Id,
			BattleId:      p.BattleId,
			TerritoryId:   p.TerritoryId,
			UId:           p.UId,
			Side:          domain.Side(p.Side),
			RollCount:     p.RollCount,
			RollSeq:       p.RollSeq,
			BestOutcome:   domain.Outcome(p.BestOutcome),
			Push:          p.Push,
			ControlBefore: p.ControlBefore,
			ControlAfter:  p.ControlAfter,
			InjuryId:      p.InjuryId,
		})

	case app.TaskDeleteSession:
		var p sessionPayload
		if err := mapstructure.Decode(task.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Kind, err)
		}
		return e.sessions.Delete(ctx, p.SessionId)

	default:
		return fmt.Errorf("unknown consequence task kind: %s", task.Kind)
	}
}
