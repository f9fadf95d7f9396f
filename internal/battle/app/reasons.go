package app

// Reason 是服务内枚举的错误原因码，用于日志与排障（errx.Reason 实现）。
type Reason struct {
	Code    string
	Message string
}

func (r Reason) ReasonCode() string {
	return r.Code
}

func NewReason(c, m string) Reason {
	return Reason{Code: c, Message: m}
}

var (
	// 业务拒绝 reason。
	ReasonBattleInProgress = NewReason("BATTLE_IN_PROGRESS", "目标王国已有未结算战斗")
	ReasonPledgeClosed     = NewReason("PLEDGE_CLOSED", "报名已截止")
	ReasonFightingNotBegun = NewReason("FIGHTING_NOT_BEGUN", "战斗阶段尚未开始")
	ReasonBattleFinished   = NewReason("BATTLE_FINISHED", "战斗已结算")
	ReasonSideSwitch       = NewReason("SIDE_SWITCH", "不允许切换阵营")
	ReasonInjuryActive     = NewReason("INJURY_ACTIVE", "重伤未愈")
	ReasonNoRollsYet       = NewReason("NO_ROLLS_YET", "至少掷骰一次才能结算")
)

var (
	// 技术错误 reason。
	ReasonStatsUnavailable    = NewReason("STATS_UNAVAILABLE", "属性服务不可用")
	ReasonLedgerContention    = NewReason("LEDGER_CONTENTION", "领地乐观锁重试耗尽")
	ReasonRepoUnavailable     = NewReason("REPO_UNAVAILABLE", "战斗存储不可用")
	ReasonRegistryUnavailable = NewReason("REGISTRY_UNAVAILABLE", "王国注册表不可用")
)
