package app

import (
	"context"
	"testing"
	"time"

	"KingdomWars/internal/battle/domain"
)

// invasionFixture 开一场入侵并推进到战斗阶段：88 国（9 号帝国）的 11 入侵 77 国（7 号帝国），22 防守。
func invasionFixture(t *testing.T) (*engine, *domain.Battle, []domain.BattleTerritory) {
	t.Helper()
	e := newEngine(defaultStats(),
		fakeRegistry{ruler: 500, empire: 7, empires: map[int64]int64{88: 9}}, nil, testStart)
	ctx := context.Background()

	b, err := e.lifecycle.Open(ctx, OpenBattleReq{
		KingdomId:     77,
		InitiatorId:   11,
		Kind:          domain.KindInvasion,
		FromKingdomId: 88,
		PledgeWindow:  time.Hour,
	})
	if err != nil {
		t.Fatalf("开战失败: %v", err)
	}
	if err := e.lifecycle.Pledge(ctx, b.Id, 22, domain.SideDefenders); err != nil {
		t.Fatalf("报名失败: %v", err)
	}

	e.clockAt = e.clockAt.Add(2 * time.Hour)
	territories, _ := memTerritories{e.repo}.ListByBattle(ctx, b.Id)
	return e, b, territories
}

func captureBySide(t *testing.T, e *engine, territories []domain.BattleTerritory, side domain.Side, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.ledger.ApplyPush(context.Background(), territories[i].Id, side, 60); err != nil {
			t.Fatalf("占领领地失败: %v", err)
		}
	}
}

func Test结算_入侵方占领三分之二应转移统治与帝国归属(t *testing.T) {
	e, b, territories := invasionFixture(t)
	ctx := context.Background()

	captureBySide(t, e, territories, domain.SideAttackers, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	got, _ := memBattles{e.repo}.Get(ctx, b.Id)
	if !got.Resolved() || got.WinnerSide != domain.SideAttackers {
		t.Fatalf("期望进攻方获胜结算, got=%+v", got)
	}

	if len(e.repo.commits) != 1 {
		t.Fatalf("期望恰好一次结算提交, got=%d", len(e.repo.commits))
	}
	c := e.repo.commits[0]
	if !c.Mutate {
		t.Fatalf("期望进攻方获胜触发统治变更")
	}
	h := c.History
	// 帝国归属取来犯王国 88 所在的 9 号帝国，而不是王国 ID 本身。
	if h.OldRulerId != 500 || h.NewRulerId != 11 || h.OldEmpireId != 7 || h.NewEmpireId != 9 {
		t.Fatalf("期望历史记录: 统治者 500→11, 帝国 7→9, got=%+v", h)
	}
	if len(e.repo.histories) != 1 {
		t.Fatalf("期望追加一条王国历史, got=%d", len(e.repo.histories))
	}

	// 赏金池 1000 由 1 名胜者均分。
	if got.GoldPerWinner != 1000 {
		t.Fatalf("期望人均赏金 1000, got=%d", got.GoldPerWinner)
	}
	if e.treasury.debits[77] != 1000 || e.treasury.credits[11] != 1000 {
		t.Fatalf("期望从 77 国金库划出 1000 并入账给 11, debits=%v credits=%v",
			e.treasury.debits, e.treasury.credits)
	}

	if len(e.notifier.notices) != 1 || e.notifier.notices[0].RulerId != 500 {
		t.Fatalf("期望通知旧统治者 500, got=%+v", e.notifier.notices)
	}
	if len(e.publisher.resolutions) != 1 {
		t.Fatalf("期望广播一次终局, got=%d", len(e.publisher.resolutions))
	}
}

func Test结算_防守方获胜不变更统治且不通知(t *testing.T) {
	e, b, territories := invasionFixture(t)
	ctx := context.Background()

	captureBySide(t, e, territories, domain.SideDefenders, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	got, _ := memBattles{e.repo}.Get(ctx, b.Id)
	if !got.Resolved() || got.WinnerSide != domain.SideDefenders {
		t.Fatalf("期望防守方获胜结算, got=%+v", got)
	}
	if len(e.repo.commits) != 1 || e.repo.commits[0].Mutate {
		t.Fatalf("期望防守方获胜不触发统治变更, commits=%+v", e.repo.commits)
	}
	if len(e.repo.histories) != 0 {
		t.Fatalf("期望统治未变更时不写历史, got=%d", len(e.repo.histories))
	}
	if len(e.notifier.notices) != 0 {
		t.Fatalf("期望防守成功不发战败通知, got=%+v", e.notifier.notices)
	}
	if e.treasury.credits[22] != 1000 {
		t.Fatalf("期望防守方 22 获得赏金 1000, got=%v", e.treasury.credits)
	}
}

func Test结算_重复触发应幂等(t *testing.T) {
	e, b, territories := invasionFixture(t)
	ctx := context.Background()

	captureBySide(t, e, territories, domain.SideAttackers, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	// 并发触发方拿到的是结算前的旧快照：提交守卫生效后同样视为成功。
	stale := *b
	if err := e.resolution.Resolve(ctx, &stale, domain.SideAttackers); err != nil {
		t.Fatalf("期望重复结算幂等返回 nil, got=%v", err)
	}
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	if len(e.repo.commits) != 1 {
		t.Fatalf("期望只提交一次, got=%d", len(e.repo.commits))
	}
	if e.treasury.debits[77] != 1000 {
		t.Fatalf("期望金库只划转一次, got=%d", e.treasury.debits[77])
	}
}

func Test结算_副作用失败应入后果队列且不影响结算(t *testing.T) {
	e, b, territories := invasionFixture(t)
	ctx := context.Background()

	e.treasury.debitErr = context.DeadlineExceeded
	e.treasury.creditErr = context.DeadlineExceeded
	e.notifier.err = context.DeadlineExceeded

	captureBySide(t, e, territories, domain.SideAttackers, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("期望副作用失败不阻塞结算, got=%v", err)
	}

	got, _ := memBattles{e.repo}.Get(ctx, b.Id)
	if !got.Resolved() {
		t.Fatalf("期望战斗已结算")
	}

	kinds := map[string]int{}
	for _, task := range e.queue.tasks {
		kinds[task.Kind]++
	}
	if kinds[TaskTreasuryDebit] != 1 || kinds[TaskTreasuryCredit] != 1 || kinds[TaskNotifyDefeat] != 1 {
		t.Fatalf("期望 debit/credit/notify 各入队一次, got=%v", kinds)
	}
}

func Test结算_零防守方报名由守军顶替战力审计(t *testing.T) {
	e := newEngine(defaultStats(), fakeRegistry{ruler: 500, empire: 7, wall: 5}, nil, testStart)
	ctx := context.Background()

	b, err := e.lifecycle.Open(ctx, OpenBattleReq{
		KingdomId:   77,
		InitiatorId: 11,
		Kind:        domain.KindCoup,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	e.clockAt = e.clockAt.Add(3 * time.Hour)

	territories, _ := memTerritories{e.repo}.ListByBattle(ctx, b.Id)
	captureBySide(t, e, territories, domain.SideAttackers, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	got, _ := memBattles{e.repo}.Get(ctx, b.Id)
	// 防守审计 = 守军 3 + 城墙 5。
	if got.DefenderStrength != 8 || got.AttackerStrength != 1 {
		t.Fatalf("期望审计战力 攻=1 守=8, got 攻=%d 守=%d", got.AttackerStrength, got.DefenderStrength)
	}
}
