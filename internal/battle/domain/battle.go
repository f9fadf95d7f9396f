package domain

import "time"

// Kind 表示战斗类型：内部夺位（政变）或外部征服（入侵）。
type Kind string

const (
	KindCoup     Kind = "coup"
	KindInvasion Kind = "invasion"
)

func (k Kind) Valid() bool {
	return k == KindCoup || k == KindInvasion
}

// Side 表示阵营。
type Side string

const (
	SideAttackers Side = "attackers"
	SideDefenders Side = "defenders"
)

func (s Side) Valid() bool {
	return s == SideAttackers || s == SideDefenders
}

func (s Side) Opponent() Side {
	if s == SideAttackers {
		return SideDefenders
	}
	return SideAttackers
}

// Phase 是战斗阶段。阶段不落库，只由时间与是否已结算推导，避免缓存状态与真实截止时间漂移。
type Phase string

const (
	PhasePledging Phase = "pledging"
	PhaseFighting Phase = "fighting"
	PhaseResolved Phase = "resolved"
)

// Battle 是一次王国争夺事件（政变或入侵）。
//
// 不变量：同一目标王国同时最多存在一场未结算的战斗。
type Battle struct {
	Id            int64     `gorm:"column:id;primaryKey;comment:战斗ID" json:"id"`
	KingdomId     int64     `gorm:"column:kingdom_id;index;not null;comment:目标王国" json:"kingdom_id"`
	Kind          Kind      `gorm:"column:kind;type:varchar(16);not null;comment:coup/invasion" json:"kind"`
	InitiatorId   int64     `gorm:"column:initiator_id;not null;comment:发起人" json:"initiator_id"`
	FromKingdomId int64     `gorm:"column:from_kingdom_id;comment:入侵方王国(仅invasion)" json:"from_kingdom_id,omitempty"`
	PledgeEndTime time.Time `gorm:"column:pledge_end_time;not null;comment:报名截止时间" json:"pledge_end_time"`

	// 结算记录：ResolvedAt 非空即为终态，字段不可再变。
	ResolvedAt       *time.Time `gorm:"column:resolved_at;comment:结算时间" json:"resolved_at,omitempty"`
	WinnerSide       Side       `gorm:"column:winner_side;type:varchar(16);comment:胜方" json:"winner_side,omitempty"`
	AttackerStrength int64      `gorm:"column:attacker_strength;comment:进攻方战力合计(审计用)" json:"attacker_strength,omitempty"`
	DefenderStrength int64      `gorm:"column:defender_strength;comment:防守方战力合计(审计用)" json:"defender_strength,omitempty"`
	WallBonus        int64      `gorm:"column:wall_bonus;comment:城墙加成(审计用)" json:"wall_bonus,omitempty"`
	GoldPerWinner    int64      `gorm:"column:gold_per_winner;comment:胜方人均赏金" json:"gold_per_winner,omitempty"`

	Ctime time.Time `gorm:"column:ctime;autoCreateTime;comment:创建时间" json:"ctime"`
}

func (Battle) TableName() string {
	return "battle"
}

// PhaseAt 推导 now 时刻的阶段（纯函数，每次读取重新计算）。
func (b Battle) PhaseAt(now time.Time) Phase {
	if b.ResolvedAt != nil {
		return PhaseResolved
	}
	if now.Before(b.PledgeEndTime) {
		return PhasePledging
	}
	return PhaseFighting
}

func (b Battle) Resolved() bool {
	return b.ResolvedAt != nil
}

// BattleActiveLock 是“每个王国同时至多一场未结算战斗”的数据库守卫行：
// 开战事务插入，结算事务删除；kingdom_id 主键天然拒绝并发的第二场。
type BattleActiveLock struct {
	KingdomId int64 `gorm:"column:kingdom_id;primaryKey;comment:目标王国" json:"kingdom_id"`
	BattleId  int64 `gorm:"column:battle_id;not null;comment:进行中的战斗" json:"battle_id"`
}

func (BattleActiveLock) TableName() string {
	return "battle_active"
}

// BattleParticipant 是报名记录，(battle, user) 唯一；报名阶段创建，之后不可变。
type BattleParticipant struct {
	Id       int64     `gorm:"column:id;primaryKey;autoIncrement;comment:记录ID" json:"id"`
	BattleId int64     `gorm:"column:battle_id;uniqueIndex:uk_battle_user;not null;comment:战斗ID" json:"battle_id"`
	UId      int64     `gorm:"column:uid;uniqueIndex:uk_battle_user;not null;comment:用户ID" json:"uid"`
	Side     Side      `gorm:"column:side;type:varchar(16);not null;comment:阵营" json:"side"`
	Ctime    time.Time `gorm:"column:ctime;autoCreateTime;comment:报名时间" json:"ctime"`
}

func (BattleParticipant) TableName() string {
	return "battle_participant"
}
