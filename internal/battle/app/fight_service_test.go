package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"KingdomWars/internal/battle/domain"
)

// fightFixture 开一场政变并推进到战斗阶段：11 进攻(stat=1)、22 防守(stat=2)。
func fightFixture(t *testing.T, roll Roller) (*engine, *domain.Battle, []domain.BattleTerritory) {
	t.Helper()
	e := newEngine(defaultStats(), fakeRegistry{ruler: 500, empire: 7}, roll, testStart)
	ctx := context.Background()

	b, err := e.lifecycle.Open(ctx, OpenBattleReq{
		KingdomId:    77,
		InitiatorId:  11,
		Kind:         domain.KindCoup,
		PledgeWindow: time.Hour,
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

func Test会话_stat为1应有两次掷骰且命中推挤8点(t *testing.T) {
	// 第一骰 30 → hit(30<60)，第二骰 98 → miss，预算耗尽自动结算。
	e, b, territories := fightFixture(t, scriptedRoller(30, 98))
	ctx := context.Background()

	session, err := e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id)
	if err != nil {
		t.Fatalf("开场失败: %v", err)
	}
	if session.MaxRolls != 2 || session.HitChance != 60 {
		t.Fatalf("期望 max_rolls=2 hit_chance=60, got=%d/%d", session.MaxRolls, session.HitChance)
	}

	_, outcome, auto, _, err := e.fight.Roll(ctx, b.Id, 11)
	if err != nil || auto {
		t.Fatalf("第一骰不应触发自动结算, outcome=%s auto=%v err=%v", outcome, auto, err)
	}
	if outcome != domain.OutcomeHit {
		t.Fatalf("期望 hit, got=%s", outcome)
	}

	_, outcome, auto, resolved, err := e.fight.Roll(ctx, b.Id, 11)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !auto || resolved == nil {
		t.Fatalf("期望预算耗尽自动结算")
	}
	if outcome != domain.OutcomeMiss {
		t.Fatalf("期望第二骰 miss, got=%s", outcome)
	}
	// 只取最优结果 hit：推力 8，进攻方 50→42。
	if resolved.Outcome != domain.OutcomeHit || resolved.Before != 50 || resolved.After != 42 {
		t.Fatalf("期望最优 hit 推挤 50→42, got outcome=%s before=%d after=%d",
			resolved.Outcome, resolved.Before, resolved.After)
	}

	if _, err := (memSessions{e.repo}).Get(ctx, b.Id, 11); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("期望结算后会话删除, got=%v", err)
	}
}

func Test会话_重复开场同领地应恢复原会话(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(30))
	ctx := context.Background()

	first, err := e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	again, err := e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id)
	if err != nil {
		t.Fatalf("期望断线恢复返回原会话, got=%v", err)
	}
	if again.Id != first.Id || again.RollCount() != 1 {
		t.Fatalf("期望恢复同一会话且保留进度, id=%d/%d rolls=%d", again.Id, first.Id, again.RollCount())
	}

	_, err = e.fight.OpenSession(ctx, b.Id, 11, territories[1].Id)
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("期望换领地返回 BATTLE_SESSION_EXISTS, got=%v", err)
	}
}

func Test会话_非报名者与报名阶段应拒绝(t *testing.T) {
	e, b, territories := fightFixture(t, nil)
	ctx := context.Background()

	_, err := e.fight.OpenSession(ctx, b.Id, 33, territories[0].Id)
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("期望 BATTLE_NOT_PARTICIPANT, got=%v", err)
	}

	// 回拨到报名阶段。
	e.clockAt = testStart
	_, err = e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id)
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("期望 BATTLE_INVALID_PHASE, got=%v", err)
	}
}

func Test掷骰_预算耗尽且未结算应拒绝(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(99))
	ctx := context.Background()

	// 直接构造一个预算已耗尽但尚未结算的会话（自动结算失败后的残留形态）。
	session := &domain.FightSession{
		Id:          1,
		BattleId:    b.Id,
		UId:         11,
		TerritoryId: territories[0].Id,
		Side:        domain.SideAttackers,
		MaxRolls:    1,
		RollSeq:     string(domain.OutcomeMiss),
		BestOutcome: domain.OutcomeMiss,
		CombatStat:  0,
		HitChance:   55,
	}
	if err := (memSessions{e.repo}).Create(ctx, session); err != nil {
		t.Fatalf("err=%v", err)
	}

	_, _, _, _, err := e.fight.Roll(ctx, b.Id, 11)
	if !errors.Is(err, ErrNoRollsRemaining) {
		t.Fatalf("期望 BATTLE_NO_ROLLS_REMAINING, got=%v", err)
	}
}

func Test结算_未掷骰应拒绝(t *testing.T) {
	e, b, territories := fightFixture(t, nil)
	ctx := context.Background()

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id); err != nil {
		t.Fatalf("err=%v", err)
	}
	_, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if !errors.Is(err, ErrReqParamERR) {
		t.Fatalf("期望至少掷骰一次才能结算, got=%v", err)
	}
}

func Test结算_全miss应零推力完结(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(99))
	ctx := context.Background()

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, territories[0].Id); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	res, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Push != 0 || res.Before != 50 || res.After != 50 {
		t.Fatalf("期望零推力且控制值不变, got=%+v", res)
	}

	actions, _ := memActions{e.repo}.ListByBattle(ctx, b.Id)
	if len(actions) != 1 || actions[0].Push != 0 || actions[0].BestOutcome != domain.OutcomeMiss {
		t.Fatalf("期望写入 push=0 的日志行, got=%+v", actions)
	}
}

func Test结算_领地中途被占领应零推力完结(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(30))
	ctx := context.Background()
	tid := territories[0].Id

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	// 会话进行期间领地被防守方推到边界占领。
	if _, err := e.ledger.ApplyPush(ctx, tid, domain.SideDefenders, 50); err != nil {
		t.Fatalf("err=%v", err)
	}

	res, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if err != nil {
		t.Fatalf("期望占领不算失败而是零推力完结, got=%v", err)
	}
	if res.Push != 0 || res.After != domain.ControlMax {
		t.Fatalf("期望推力作废且控制值停在 100, got=%+v", res)
	}
	if _, err := (memSessions{e.repo}).Get(ctx, b.Id, 11); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("期望会话完结删除, got=%v", err)
	}
}

func Test重伤_injure应使对面会话持有者受伤并阻止新开场(t *testing.T) {
	// 防守 22 先骰 99(miss)，进攻 11 再骰 5(injure)。
	e, b, territories := fightFixture(t, scriptedRoller(99, 5))
	ctx := context.Background()
	tid := territories[0].Id

	if _, err := e.fight.OpenSession(ctx, b.Id, 22, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 22); err != nil {
		t.Fatalf("err=%v", err)
	}

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, outcome, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil || outcome != domain.OutcomeInjure {
		t.Fatalf("期望 injure, outcome=%s err=%v", outcome, err)
	}

	res, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.InjuredUser != 22 {
		t.Fatalf("期望对面同领地会话持有者 22 受伤, got=%d", res.InjuredUser)
	}
	// injure 推力 12：50→38。
	if res.After != 38 {
		t.Fatalf("期望 injure 推挤 50→38, got=%d", res.After)
	}

	actions, _ := memActions{e.repo}.ListByBattle(ctx, b.Id)
	if len(actions) != 1 || actions[0].InjuryId == nil {
		t.Fatalf("期望日志行关联重伤记录, got=%+v", actions)
	}

	// 22 先完结自己的会话，再开新场被重伤阻止。
	if _, err := e.fight.ResolveSession(ctx, b.Id, 22); err != nil {
		t.Fatalf("err=%v", err)
	}
	_, err = e.fight.OpenSession(ctx, b.Id, 22, tid)
	if !errors.Is(err, ErrAlreadyInjured) {
		t.Fatalf("期望 BATTLE_ALREADY_INJURED, got=%v", err)
	}

	// 20 分钟后自然解除。
	e.clockAt = e.clockAt.Add(21 * time.Minute)
	if _, err := e.fight.OpenSession(ctx, b.Id, 22, tid); err != nil {
		t.Fatalf("期望重伤过期后可以开场, got=%v", err)
	}
}

func Test结算_战斗已结算应拒绝遗留会话落账(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(30))
	ctx := context.Background()
	tid := territories[2].Id

	// 11 在第三块领地开场并骰出 hit，但不结算。
	if _, err := e.fight.OpenSession(ctx, b.Id, 11, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	// 进攻方占领前两块领地，战斗整体结算。
	captureBySide(t, e, territories, domain.SideAttackers, 2)
	if err := e.lifecycle.CheckCaptureAndMaybeResolve(ctx, b.Id); err != nil {
		t.Fatalf("err=%v", err)
	}

	_, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("期望结算后的遗留会话被拒绝, got=%v", err)
	}

	// 推力不落账，第三块领地保持中立，也没有新日志行。
	final, _ := (memTerritories{e.repo}).Get(ctx, tid)
	if final.Control != domain.ControlNeutral {
		t.Fatalf("期望第三块领地保持 50, got=%d", final.Control)
	}
	actions, _ := (memActions{e.repo}).ListByBattle(ctx, b.Id)
	for _, a := range actions {
		if a.TerritoryId == tid {
			t.Fatalf("期望不在已结算战斗上追加日志行, got=%+v", a)
		}
	}
}

func Test结算_日志行写入失败应入队补偿且推力不丢(t *testing.T) {
	e, b, territories := fightFixture(t, scriptedRoller(30))
	ctx := context.Background()
	tid := territories[0].Id

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	e.repo.actionCreateErr = context.DeadlineExceeded
	res, err := e.fight.ResolveSession(ctx, b.Id, 11)
	if err != nil {
		t.Fatalf("期望推力已落账时日志失败不报错, got=%v", err)
	}
	if res.After != 42 {
		t.Fatalf("期望推力照常生效 50→42, got=%d", res.After)
	}

	// 日志行改走后果队列，载荷能还原 push。
	if len(e.queue.tasks) != 1 || e.queue.tasks[0].Kind != TaskRecordAction {
		t.Fatalf("期望日志行入队补偿, got=%+v", e.queue.tasks)
	}
	if push, ok := e.queue.tasks[0].Payload["push"].(int); !ok || push != -8 {
		t.Fatalf("期望载荷携带实际推力 -8, got=%v", e.queue.tasks[0].Payload["push"])
	}
	if _, err := (memSessions{e.repo}).Get(ctx, b.Id, 11); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("期望会话照常删除, got=%v", err)
	}
}

func Test回放_按日志顺序重放应复现最终控制值(t *testing.T) {
	// 11 命中 -8；22 命中 +9（stat=2 攻防差加成 1）。
	e, b, territories := fightFixture(t, scriptedRoller(30, 30))
	ctx := context.Background()
	tid := territories[0].Id

	if _, err := e.fight.OpenSession(ctx, b.Id, 11, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.fight.ResolveSession(ctx, b.Id, 11); err != nil {
		t.Fatalf("err=%v", err)
	}

	if _, err := e.fight.OpenSession(ctx, b.Id, 22, tid); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, _, _, _, err := e.fight.Roll(ctx, b.Id, 22); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.fight.ResolveSession(ctx, b.Id, 22); err != nil {
		t.Fatalf("err=%v", err)
	}

	final, _ := memTerritories{e.repo}.Get(ctx, tid)
	actions, _ := memActions{e.repo}.ListByBattle(ctx, b.Id)

	control := domain.ControlNeutral
	for _, a := range actions {
		if a.TerritoryId != tid {
			continue
		}
		control += a.Push
		if a.ControlAfter != control {
			t.Fatalf("回放偏离日志: 期望 %d, 日志记录 %d", control, a.ControlAfter)
		}
	}
	if control != final.Control {
		t.Fatalf("期望回放复现最终控制值 %d, got=%d", final.Control, control)
	}
}
