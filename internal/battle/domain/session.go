package domain

import (
	"strings"
	"time"
)

// Outcome 是单次掷骰结果。
type Outcome string

const (
	OutcomeMiss   Outcome = "miss"
	OutcomeHit    Outcome = "hit"
	OutcomeInjure Outcome = "injure"
)

// rank 用于比较结果优劣：injure > hit > miss。
func (o Outcome) rank() int {
	switch o {
	case OutcomeInjure:
		return 2
	case OutcomeHit:
		return 1
	default:
		return 0
	}
}

func (o Outcome) Beats(other Outcome) bool {
	return o.rank() > other.rank()
}

const (
	// injureThreshold 是重伤判定线：掷出 [0,10) 即 injure。
	injureThreshold = 10

	basePushHit    = 8
	basePushInjure = 12

	minEffectiveHitChance = 5
	maxEffectiveHitChance = 95
)

// HitChanceFor 由战斗属性换算命中率快照：55 + 5*stat，封顶 90。
func HitChanceFor(combatStat int) int {
	c := 55 + 5*combatStat
	if c > 90 {
		c = 90
	}
	return c
}

// ClassifyRoll 把一次 [0,100) 的随机数按快照分类。
// 有效命中率 = clamp(hitChance - oppDefense, 5, 95)。
func ClassifyRoll(draw, hitChance, oppDefense int) Outcome {
	eff := hitChance - oppDefense
	if eff < minEffectiveHitChance {
		eff = minEffectiveHitChance
	}
	if eff > maxEffectiveHitChance {
		eff = maxEffectiveHitChance
	}
	switch {
	case draw < injureThreshold:
		return OutcomeInjure
	case draw < eff:
		return OutcomeHit
	default:
		return OutcomeMiss
	}
}

// PushFor 由结果与属性差计算推力：基础值 + clamp((stat-oppDefense)/2, 0, 4)。
// miss 没有推力。
func PushFor(o Outcome, combatStat, oppDefense int) int {
	var base int
	switch o {
	case OutcomeHit:
		base = basePushHit
	case OutcomeInjure:
		base = basePushInjure
	default:
		return 0
	}
	bonus := (combatStat - oppDefense) / 2
	if bonus < 0 {
		bonus = 0
	}
	if bonus > 4 {
		bonus = 4
	}
	return base + bonus
}

// FightSession 是一名玩家针对一块领地的进行中战斗尝试。
// (battle, user) 唯一；断线后可恢复，直到显式结算或整场战斗结算。
//
// 只保留最优结果及其推力（不是累加），反复掷骰不会滚雪球。
type FightSession struct {
	Id          int64     `gorm:"column:id;primaryKey;comment:会话ID" json:"id"`
	BattleId    int64     `gorm:"column:battle_id;uniqueIndex:uk_session_battle_user;not null;comment:战斗ID" json:"battle_id"`
	UId         int64     `gorm:"column:uid;uniqueIndex:uk_session_battle_user;not null;comment:用户ID" json:"uid"`
	TerritoryId int64     `gorm:"column:territory_id;not null;comment:目标领地" json:"territory_id"`
	Side        Side      `gorm:"column:side;type:varchar(16);not null;comment:阵营" json:"side"`
	MaxRolls    int       `gorm:"column:max_rolls;not null;comment:掷骰预算=1+combat_stat" json:"max_rolls"`
	RollSeq     string    `gorm:"column:roll_seq;type:varchar(255);comment:结果序列,逗号分隔" json:"roll_seq"`
	BestOutcome Outcome   `gorm:"column:best_outcome;type:varchar(16);comment:最优结果" json:"best_outcome"`
	BestPush    int       `gorm:"column:best_push;comment:最优结果推力" json:"best_push"`
	CombatStat  int       `gorm:"column:combat_stat;not null;comment:开场战斗属性快照" json:"combat_stat"`
	HitChance   int       `gorm:"column:hit_chance;not null;comment:命中率快照" json:"hit_chance"`
	OppDefense  int       `gorm:"column:opp_defense;not null;comment:对方平均防御快照" json:"opp_defense"`
	OpenControl int       `gorm:"column:open_control;not null;comment:开场观察到的控制值" json:"open_control"`
	Ctime       time.Time `gorm:"column:ctime;autoCreateTime;comment:开场时间" json:"ctime"`
}

func (FightSession) TableName() string {
	return "battle_fight_session"
}

func (s FightSession) RollCount() int {
	if s.RollSeq == "" {
		return 0
	}
	return strings.Count(s.RollSeq, ",") + 1
}

func (s FightSession) RollsRemaining() int {
	return s.MaxRolls - s.RollCount()
}

// Record 追加一次结果，只在更优时更新 best。
func (s *FightSession) Record(o Outcome) {
	if s.RollSeq == "" {
		s.RollSeq = string(o)
	} else {
		s.RollSeq += "," + string(o)
	}
	if s.BestOutcome == "" || o.Beats(s.BestOutcome) {
		s.BestOutcome = o
		s.BestPush = PushFor(o, s.CombatStat, s.OppDefense)
	}
}
