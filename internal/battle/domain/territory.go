package domain

import "time"

const (
	// 每场战斗固定三块领地。
	TerritoryCount = 3

	ControlMin     = 0   // 进攻方占领
	ControlNeutral = 50  // 开局中立
	ControlMax     = 100 // 防守方占领
)

// BattleTerritory 是战斗中的一块拉锯领地。
//
// control 在 [0,100]；到达边界后冻结并记录占领方。
// Version 用于乐观锁：并发推挤同一领地时由 CAS 串行化。
type BattleTerritory struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement;comment:领地ID" json:"id"`
	BattleId   int64      `gorm:"column:battle_id;uniqueIndex:uk_battle_slot;not null;comment:战斗ID" json:"battle_id"`
	Slot       int        `gorm:"column:slot;uniqueIndex:uk_battle_slot;not null;comment:领地序号0~2" json:"slot"`
	Control    int        `gorm:"column:control;not null;default:50;comment:控制值0~100" json:"control"`
	CapturedBy Side       `gorm:"column:captured_by;type:varchar(16);comment:占领方(为空未占领)" json:"captured_by,omitempty"`
	CapturedAt *time.Time `gorm:"column:captured_at;comment:占领时间" json:"captured_at,omitempty"`
	Version    int64      `gorm:"column:version;not null;default:0;comment:乐观锁版本" json:"-"`
}

func (BattleTerritory) TableName() string {
	return "battle_territory"
}

func (t BattleTerritory) Captured() bool {
	return t.CapturedBy != ""
}

// SignedDelta 把阵营+推力换算为带符号控制值增量：进攻向 0，防守向 100。
func SignedDelta(side Side, amount int) int {
	if amount < 0 {
		amount = -amount
	}
	if side == SideAttackers {
		return -amount
	}
	return amount
}

// ApplyDelta 计算一次推挤后的控制值与占领结果（纯函数，不修改 t）。
// 返回推挤前后的控制值；到达边界即被 capturedBy 占领。
func (t BattleTerritory) ApplyDelta(delta int) (before, after int, capturedBy Side) {
	before = t.Control
	after = before + delta
	if after <= ControlMin {
		after = ControlMin
		capturedBy = SideAttackers
	}
	if after >= ControlMax {
		after = ControlMax
		capturedBy = SideDefenders
	}
	return before, after, capturedBy
}
