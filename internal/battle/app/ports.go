package app

import (
	"context"
	"time"

	"KingdomWars/internal/battle/domain"
)

// 仓储端口：由 infra/repo 的 gorm 实现提供。

type BattleRepo interface {
	// Get 不存在时返回 domain.ErrBattleNotFound。
	Get(ctx context.Context, id int64) (*domain.Battle, error)
	// GetUnresolvedByKingdom 查找目标王国当前未结算的战斗；不存在时返回 domain.ErrBattleNotFound。
	GetUnresolvedByKingdom(ctx context.Context, kingdomID int64) (*domain.Battle, error)
	// Create 在同一事务内创建战斗与三块中立领地。
	Create(ctx context.Context, b *domain.Battle, territories []domain.BattleTerritory) error
}

type ParticipantRepo interface {
	// Get 未报名时返回 domain.ErrNotParticipant。
	Get(ctx context.Context, battleID, uid int64) (*domain.BattleParticipant, error)
	ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleParticipant, error)
	Create(ctx context.Context, p *domain.BattleParticipant) error
}

type TerritoryRepo interface {
	ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleTerritory, error)
	// Get 不存在时返回 domain.ErrBattleNotFound。
	Get(ctx context.Context, id int64) (*domain.BattleTerritory, error)
	// CompareAndSwap 以乐观锁方式写入新的控制值与占领标记；版本不匹配时返回 false。
	CompareAndSwap(ctx context.Context, cur domain.BattleTerritory, after int, capturedBy domain.Side, capturedAt *time.Time) (bool, error)
}

type SessionRepo interface {
	// Get 不存在时返回 domain.ErrSessionNotFound。
	Get(ctx context.Context, battleID, uid int64) (*domain.FightSession, error)
	// ListOpenByTerritory 按开场时间倒序返回该领地上仍未结算的会话。
	ListOpenByTerritory(ctx context.Context, territoryID int64) ([]domain.FightSession, error)
	Create(ctx context.Context, s *domain.FightSession) error
	Update(ctx context.Context, s *domain.FightSession) error
	Delete(ctx context.Context, id int64) error
}

type ActionRepo interface {
	Create(ctx context.Context, a *domain.BattleAction) error
	// ListByBattle 按写入顺序返回日志行（回放用）。
	ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleAction, error)
}

type InjuryRepo interface {
	// GetUncleared 返回 (battle, victim) 的未清除记录；不存在时返回 (nil, nil)。
	GetUncleared(ctx context.Context, battleID, victimID int64) (*domain.BattleInjury, error)
	Create(ctx context.Context, i *domain.BattleInjury) error
	// Refresh 刷新已有记录的过期时间与来源（再次受伤不叠加）。
	Refresh(ctx context.Context, i *domain.BattleInjury) error
	Clear(ctx context.Context, id int64, at time.Time) error
}

// ResolutionCommit 是结算记录与其同事务副作用的输入。
type ResolutionCommit struct {
	BattleId         int64
	KingdomId        int64
	ResolvedAt       time.Time
	WinnerSide       domain.Side
	AttackerStrength int64
	DefenderStrength int64
	WallBonus        int64
	GoldPerWinner    int64

	// 统治变更：Mutate 为 false 表示防守方获胜，王国字段不动、不写历史。
	Mutate  bool
	History domain.KingdomHistoryEntry
}

type ResolutionRepo interface {
	// Commit 在单个事务内完成：结算字段写入（resolved_at IS NULL 守卫）、
	// 王国统治者/帝国变更、历史记录追加。
	// 守卫失败（已结算）返回 domain.ErrAlreadyResolved。
	Commit(ctx context.Context, c ResolutionCommit) error
}

// 外部协作方端口。

type GarrisonStats struct {
	Strength int
	Defense  int
}

// StatsService 提供战斗属性查询（身份与属性服务）。
type StatsService interface {
	CombatStat(ctx context.Context, uid int64, kind domain.Kind) (int, error)
	DefenseStat(ctx context.Context, uid int64) (int, error)
	// Garrison 返回王国常备守军的派生属性（零防守方报名时顶替防守）。
	Garrison(ctx context.Context, kingdomID int64) (GarrisonStats, error)
}

// KingdomRegistry 提供王国注册表的读能力；写入走 ResolutionRepo.Commit 的同一事务。
type KingdomRegistry interface {
	Ruler(ctx context.Context, kingdomID int64) (int64, error)
	Empire(ctx context.Context, kingdomID int64) (int64, error)
	WallBonus(ctx context.Context, kingdomID int64) (int64, error)
}

// Treasury 是金库服务（结算后划转赏金）。
type Treasury interface {
	Debit(ctx context.Context, account int64, amount int64) error
	Credit(ctx context.Context, account int64, amount int64) error
}

// DefeatNotice 是战败通知内容。
type DefeatNotice struct {
	BattleId   int64
	KingdomId  int64
	RulerId    int64
	WinnerSide domain.Side
}

type Notifier interface {
	NotifyDefeat(ctx context.Context, n DefeatNotice) error
}

// ResolutionArchive 是归档到文档库的终局摘要（审计与回溯查询用）。
type ResolutionArchive struct {
	BattleId         int64       `bson:"battle_id"`
	KingdomId        int64       `bson:"kingdom_id"`
	Kind             domain.Kind `bson:"kind"`
	WinnerSide       domain.Side `bson:"winner_side"`
	AttackerStrength int64       `bson:"attacker_strength"`
	DefenderStrength int64       `bson:"defender_strength"`
	WallBonus        int64       `bson:"wall_bonus"`
	GoldPerWinner    int64       `bson:"gold_per_winner"`
	ResolvedAt       time.Time   `bson:"resolved_at"`
}

// Archiver 把终局摘要写入文档库；归档是尽力而为，失败不影响结算。
type Archiver interface {
	ArchiveResolution(ctx context.Context, a ResolutionArchive) error
}

// TerritoryUpdate 是推送给观战连接的领地快照。
type TerritoryUpdate struct {
	BattleId    int64       `json:"battle_id"`
	TerritoryId int64       `json:"territory_id"`
	Slot        int         `json:"slot"`
	Control     int         `json:"control"`
	CapturedBy  domain.Side `json:"captured_by,omitempty"`
}

// ResolutionUpdate 是推送给观战连接的终局快照。
type ResolutionUpdate struct {
	BattleId      int64       `json:"battle_id"`
	WinnerSide    domain.Side `json:"winner_side"`
	GoldPerWinner int64       `json:"gold_per_winner"`
	ResolvedAt    time.Time   `json:"resolved_at"`
}

// Publisher 把领地变化与终局推给观战端；实现必须非阻塞。
type Publisher interface {
	PublishTerritory(battleID int64, upd TerritoryUpdate)
	PublishResolution(battleID int64, upd ResolutionUpdate)
}

// 后果任务类型。
const (
	TaskTreasuryDebit  = "treasury_debit"
	TaskTreasuryCredit = "treasury_credit"
	TaskNotifyDefeat   = "notify_defeat"
	TaskRecordAction   = "record_action"
	TaskDeleteSession  = "delete_session"
)

// ConsequenceTask 是结算后副作用的重试任务。ID 为空时由队列补发。
type ConsequenceTask struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	BattleId int64          `json:"battle_id"`
	Payload  map[string]any `json:"payload"`
}

// ConsequenceQueue 接收失败的副作用任务做带上限的异步重试。
type ConsequenceQueue interface {
	Enqueue(task ConsequenceTask)
}

// Roller 返回 [0,100) 的随机数；随机数生成不允许失败。
type Roller func() int

// IDGen 生成全局唯一 ID（snowflake）。
type IDGen func() (int64, error)

// Clock 便于测试注入时间。
type Clock func() time.Time
