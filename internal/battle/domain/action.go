package domain

import "time"

// BattleAction 是一次战斗尝试结算后写入的不可变日志行。
// 按写入顺序回放 push，可精确复现领地最终控制值。
type BattleAction struct {
	// Id 由应用层预生成（snowflake），以便同批写入的重伤记录能先引用到它。
	Id            int64     `gorm:"column:id;primaryKey;comment:日志ID" json:"id"`
	BattleId      int64     `gorm:"column:battle_id;index;not null;comment:战斗ID" json:"battle_id"`
	TerritoryId   int64     `gorm:"column:territory_id;index;not null;comment:领地ID" json:"territory_id"`
	UId           int64     `gorm:"column:uid;not null;comment:用户ID" json:"uid"`
	Side          Side      `gorm:"column:side;type:varchar(16);not null;comment:阵营" json:"side"`
	RollCount     int       `gorm:"column:roll_count;not null;comment:掷骰次数" json:"roll_count"`
	RollSeq       string    `gorm:"column:roll_seq;type:varchar(255);comment:结果序列" json:"roll_seq"`
	BestOutcome   Outcome   `gorm:"column:best_outcome;type:varchar(16);not null;comment:最优结果" json:"best_outcome"`
	Push          int       `gorm:"column:push;not null;comment:实际施加推力(带符号)" json:"push"`
	ControlBefore int       `gorm:"column:control_before;not null;comment:推挤前控制值" json:"control_before"`
	ControlAfter  int       `gorm:"column:control_after;not null;comment:推挤后控制值" json:"control_after"`
	InjuryId      *int64    `gorm:"column:injury_id;comment:造成的重伤记录(可空)" json:"injury_id,omitempty"`
	Ctime         time.Time `gorm:"column:ctime;autoCreateTime;comment:写入时间" json:"ctime"`
}

func (BattleAction) TableName() string {
	return "battle_action"
}
