package domain

import "time"

// DefaultInjuryDuration 是重伤的默认持续时长。
const DefaultInjuryDuration = 20 * time.Minute

// BattleInjury 是短时战斗减员：未清除且未过期时，伤者不能开启新的战斗会话。
// 同一 (battle, victim) 最多一条未清除记录；再次受伤是刷新而不是叠加。
type BattleInjury struct {
	Id        int64      `gorm:"column:id;primaryKey;autoIncrement;comment:记录ID" json:"id"`
	BattleId  int64      `gorm:"column:battle_id;index:idx_injury_battle_victim;not null;comment:战斗ID" json:"battle_id"`
	VictimId  int64      `gorm:"column:victim_id;index:idx_injury_battle_victim;not null;comment:伤者" json:"victim_id"`
	InjurerId int64      `gorm:"column:injurer_id;not null;comment:致伤者" json:"injurer_id"`
	ActionId  int64      `gorm:"column:action_id;not null;comment:来源日志行" json:"action_id"`
	ExpireAt  time.Time  `gorm:"column:expire_at;not null;comment:自然过期时间" json:"expire_at"`
	ClearedAt *time.Time `gorm:"column:cleared_at;comment:清除时间(可空)" json:"cleared_at,omitempty"`
	Ctime     time.Time  `gorm:"column:ctime;autoCreateTime;comment:受伤时间" json:"ctime"`
}

func (BattleInjury) TableName() string {
	return "battle_injury"
}

func (i BattleInjury) Cleared() bool {
	return i.ClearedAt != nil
}

func (i BattleInjury) Expired(now time.Time) bool {
	return !now.Before(i.ExpireAt)
}

// Blocking 表示该记录当前是否阻止开启新会话。
func (i BattleInjury) Blocking(now time.Time) bool {
	return !i.Cleared() && !i.Expired(now)
}
