package domain

import "time"

// Noble 是玩家在王国体系内的档案：战斗属性与个人金袋。
//
// CoupStat 用于政变、WarStat 用于入侵（阴谋与战争是两种本事）。
type Noble struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement;comment:档案ID" json:"id"`
	UId         int64     `gorm:"column:uid;uniqueIndex;not null;comment:用户ID" json:"uid"`
	KingdomId   int64     `gorm:"column:kingdom_id;index;not null;comment:所属王国" json:"kingdom_id"`
	CoupStat    int       `gorm:"column:coup_stat;not null;default:0;comment:政变属性" json:"coup_stat"`
	WarStat     int       `gorm:"column:war_stat;not null;default:0;comment:战争属性" json:"war_stat"`
	DefenseStat int       `gorm:"column:defense_stat;not null;default:0;comment:防御属性" json:"defense_stat"`
	Gold        int64     `gorm:"column:gold;not null;default:0;comment:个人金袋" json:"gold"`
	Ctime       time.Time `gorm:"column:ctime;autoCreateTime;comment:建档时间" json:"ctime"`
}

func (Noble) TableName() string {
	return "kingdom_noble"
}
