package domain

import "time"

// Kingdom 是王国注册表的一行：统治者、所属帝国、防御配置与金库。
//
// 统治者与帝国归属只允许由战斗结算事务改写。
type Kingdom struct {
	Id              int64     `gorm:"column:id;primaryKey;comment:王国ID" json:"id"`
	Name            string    `gorm:"column:name;type:varchar(64);not null;comment:王国名" json:"name"`
	RulerId         int64     `gorm:"column:ruler_id;not null;comment:统治者" json:"ruler_id"`
	EmpireId        int64     `gorm:"column:empire_id;comment:所属帝国(0为独立)" json:"empire_id"`
	WallBonus       int64     `gorm:"column:wall_bonus;not null;default:0;comment:城墙防御加成" json:"wall_bonus"`
	GarrisonMight   int       `gorm:"column:garrison_might;not null;default:0;comment:常备守军战力" json:"garrison_might"`
	GarrisonDefense int       `gorm:"column:garrison_defense;not null;default:0;comment:常备守军防御" json:"garrison_defense"`
	TreasuryGold    int64     `gorm:"column:treasury_gold;not null;default:0;comment:金库存量" json:"treasury_gold"`
	Ctime           time.Time `gorm:"column:ctime;autoCreateTime;comment:建国时间" json:"ctime"`
}

func (Kingdom) TableName() string {
	return "kingdom"
}
