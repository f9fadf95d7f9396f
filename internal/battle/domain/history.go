package domain

import "time"

// KingdomHistoryEntry 是王国统治变更的只追加记录，引用导致变更的战斗。
type KingdomHistoryEntry struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement;comment:记录ID" json:"id"`
	KingdomId   int64     `gorm:"column:kingdom_id;index;not null;comment:王国ID" json:"kingdom_id"`
	BattleId    int64     `gorm:"column:battle_id;not null;comment:导致变更的战斗" json:"battle_id"`
	OldRulerId  int64     `gorm:"column:old_ruler_id;not null;comment:旧统治者" json:"old_ruler_id"`
	NewRulerId  int64     `gorm:"column:new_ruler_id;not null;comment:新统治者" json:"new_ruler_id"`
	OldEmpireId int64     `gorm:"column:old_empire_id;comment:旧帝国" json:"old_empire_id"`
	NewEmpireId int64     `gorm:"column:new_empire_id;comment:新帝国" json:"new_empire_id"`
	Ctime       time.Time `gorm:"column:ctime;autoCreateTime;comment:变更时间" json:"ctime"`
}

func (KingdomHistoryEntry) TableName() string {
	return "kingdom_history"
}
