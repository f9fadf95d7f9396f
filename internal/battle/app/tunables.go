package app

import "time"

// Tunables 是战斗引擎的数值开关，零值字段回退到默认值。
type Tunables struct {
	SpoilsPool          int64
	InjuryDuration      time.Duration
	DefaultPledgeWindow time.Duration
}

const (
	defaultSpoilsPool     = int64(1000)
	defaultInjuryDuration = 20 * time.Minute
	defaultPledgeWindow   = 2 * time.Hour
)

func (t Tunables) withDefaults() Tunables {
	if t.SpoilsPool <= 0 {
		t.SpoilsPool = defaultSpoilsPool
	}
	if t.InjuryDuration <= 0 {
		t.InjuryDuration = defaultInjuryDuration
	}
	if t.DefaultPledgeWindow <= 0 {
		t.DefaultPledgeWindow = defaultPledgeWindow
	}
	return t
}
