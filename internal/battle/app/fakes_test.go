package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"KingdomWars/internal/battle/domain"
	"KingdomWars/modules/kit/logx"
)

// memRepo 是覆盖全部仓储端口的内存实现，供本包测试复用。
type memRepo struct {
	mu           sync.Mutex
	nextID       int64
	battles      map[int64]*domain.Battle
	participants map[int64]map[int64]domain.BattleParticipant // battleID -> uid
	territories  map[int64]*domain.BattleTerritory
	sessions     map[int64]*domain.FightSession
	actions      []domain.BattleAction
	injuries     map[int64]*domain.BattleInjury
	commits      []ResolutionCommit
	histories    []domain.KingdomHistoryEntry

	commitErr        error
	casFails         int // 前 N 次 CAS 强制失败
	actionCreateErr  error
	sessionDeleteErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:       1000,
		battles:      map[int64]*domain.Battle{},
		participants: map[int64]map[int64]domain.BattleParticipant{},
		territories:  map[int64]*domain.BattleTerritory{},
		sessions:     map[int64]*domain.FightSession{},
		injuries:     map[int64]*domain.BattleInjury{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) Get(ctx context.Context, id int64) (*domain.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, domain.ErrBattleNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) GetUnresolvedByKingdom(ctx context.Context, kingdomID int64) (*domain.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.battles {
		if b.KingdomId == kingdomID && b.ResolvedAt == nil {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBattleNotFound
}

func (m *memRepo) Create(ctx context.Context, b *domain.Battle, territories []domain.BattleTerritory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, exist := range m.battles {
		if exist.KingdomId == b.KingdomId && exist.ResolvedAt == nil {
			return domain.ErrConflict
		}
	}
	cp := *b
	m.battles[b.Id] = &cp
	for i := range territories {
		t := territories[i]
		t.Id = m.id()
		m.territories[t.Id] = &t
	}
	return nil
}

func (m *memRepo) GetParticipant(ctx context.Context, battleID, uid int64) (*domain.BattleParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.participants[battleID][uid]; ok {
		cp := p
		return &cp, nil
	}
	return nil, domain.ErrNotParticipant
}

func (m *memRepo) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BattleParticipant
	for _, p := range m.participants[battleID] {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) CreateParticipant(ctx context.Context, p *domain.BattleParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[p.BattleId][p.UId]; ok {
		return domain.ErrDuplicatePledge
	}
	if m.participants[p.BattleId] == nil {
		m.participants[p.BattleId] = map[int64]domain.BattleParticipant{}
	}
	p.Id = m.id()
	m.participants[p.BattleId][p.UId] = *p
	return nil
}

func (m *memRepo) ListTerritories(ctx context.Context, battleID int64) ([]domain.BattleTerritory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BattleTerritory
	for slot := 0; slot < domain.TerritoryCount; slot++ {
		for _, t := range m.territories {
			if t.BattleId == battleID && t.Slot == slot {
				out = append(out, *t)
			}
		}
	}
	return out, nil
}

func (m *memRepo) GetTerritory(ctx context.Context, id int64) (*domain.BattleTerritory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.territories[id]
	if !ok {
		return nil, domain.ErrBattleNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) CompareAndSwap(ctx context.Context, cur domain.BattleTerritory, after int, capturedBy domain.Side, capturedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casFails > 0 {
		m.casFails--
		return false, nil
	}
	t, ok := m.territories[cur.Id]
	if !ok || t.Version != cur.Version {
		return false, nil
	}
	t.Control = after
	t.CapturedBy = capturedBy
	t.CapturedAt = capturedAt
	t.Version++
	return true, nil
}

func (m *memRepo) GetSession(ctx context.Context, battleID, uid int64) (*domain.FightSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.BattleId == battleID && s.UId == uid {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memRepo) ListOpenByTerritory(ctx context.Context, territoryID int64) ([]domain.FightSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FightSession
	for _, s := range m.sessions {
		if s.TerritoryId == territoryID {
			out = append(out, *s)
		}
	}
	// 最近开场在前
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Ctime.After(out[i].Ctime) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memRepo) CreateSession(ctx context.Context, s *domain.FightSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, exist := range m.sessions {
		if exist.BattleId == s.BattleId && exist.UId == s.UId {
			return domain.ErrSessionExists
		}
	}
	if s.Ctime.IsZero() {
		s.Ctime = time.Now()
	}
	cp := *s
	m.sessions[s.Id] = &cp
	return nil
}

func (m *memRepo) UpdateSession(ctx context.Context, s *domain.FightSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.Id] = &cp
	return nil
}

func (m *memRepo) DeleteSession(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionDeleteErr != nil {
		return m.sessionDeleteErr
	}
	delete(m.sessions, id)
	return nil
}

func (m *memRepo) CreateAction(ctx context.Context, a *domain.BattleAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actionCreateErr != nil {
		return m.actionCreateErr
	}
	m.actions = append(m.actions, *a)
	return nil
}

func (m *memRepo) ListActions(ctx context.Context, battleID int64) ([]domain.BattleAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BattleAction
	for _, a := range m.actions {
		if a.BattleId == battleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) GetUncleared(ctx context.Context, battleID, victimID int64) (*domain.BattleInjury, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.injuries {
		if i.BattleId == battleID && i.VictimId == victimID && i.ClearedAt == nil {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) CreateInjury(ctx context.Context, i *domain.BattleInjury) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.Id = m.id()
	cp := *i
	m.injuries[i.Id] = &cp
	return nil
}

func (m *memRepo) Refresh(ctx context.Context, i *domain.BattleInjury) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	m.injuries[i.Id] = &cp
	return nil
}

func (m *memRepo) Clear(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.injuries[id]; ok {
		i.ClearedAt = &at
	}
	return nil
}

func (m *memRepo) Commit(ctx context.Context, c ResolutionCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	b, ok := m.battles[c.BattleId]
	if !ok {
		return domain.ErrBattleNotFound
	}
	if b.ResolvedAt != nil {
		return domain.ErrAlreadyResolved
	}
	at := c.ResolvedAt
	b.ResolvedAt = &at
	b.WinnerSide = c.WinnerSide
	b.AttackerStrength = c.AttackerStrength
	b.DefenderStrength = c.DefenderStrength
	b.WallBonus = c.WallBonus
	b.GoldPerWinner = c.GoldPerWinner
	m.commits = append(m.commits, c)
	if c.Mutate {
		m.histories = append(m.histories, c.History)
	}
	return nil
}

// 仓储端口适配：memRepo 的方法名按端口不同而区分，这里做零开销包装。

type memBattles struct{ *memRepo }
type memParticipants struct{ *memRepo }
type memTerritories struct{ *memRepo }
type memSessions struct{ *memRepo }
type memActions struct{ *memRepo }
type memInjuries struct{ *memRepo }

func (m memParticipants) Get(ctx context.Context, battleID, uid int64) (*domain.BattleParticipant, error) {
	return m.GetParticipant(ctx, battleID, uid)
}

func (m memParticipants) Create(ctx context.Context, p *domain.BattleParticipant) error {
	return m.CreateParticipant(ctx, p)
}

func (m memTerritories) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleTerritory, error) {
	return m.ListTerritories(ctx, battleID)
}

func (m memTerritories) Get(ctx context.Context, id int64) (*domain.BattleTerritory, error) {
	return m.GetTerritory(ctx, id)
}

func (m memSessions) Get(ctx context.Context, battleID, uid int64) (*domain.FightSession, error) {
	return m.GetSession(ctx, battleID, uid)
}

func (m memSessions) Create(ctx context.Context, s *domain.FightSession) error {
	return m.CreateSession(ctx, s)
}

func (m memSessions) Update(ctx context.Context, s *domain.FightSession) error {
	return m.UpdateSession(ctx, s)
}

func (m memSessions) Delete(ctx context.Context, id int64) error {
	return m.DeleteSession(ctx, id)
}

func (m memActions) Create(ctx context.Context, a *domain.BattleAction) error {
	return m.CreateAction(ctx, a)
}

func (m memActions) ListByBattle(ctx context.Context, battleID int64) ([]domain.BattleAction, error) {
	return m.ListActions(ctx, battleID)
}

func (m memInjuries) Create(ctx context.Context, i *domain.BattleInjury) error {
	return m.CreateInjury(ctx, i)
}

// 外部协作方 fake。

type fakeStats struct {
	combat   map[int64]int
	defense  map[int64]int
	garrison GarrisonStats

	combatErr error
}

func (f fakeStats) CombatStat(ctx context.Context, uid int64, kind domain.Kind) (int, error) {
	if f.combatErr != nil {
		return 0, f.combatErr
	}
	return f.combat[uid], nil
}

func (f fakeStats) DefenseStat(ctx context.Context, uid int64) (int, error) {
	return f.defense[uid], nil
}

func (f fakeStats) Garrison(ctx context.Context, kingdomID int64) (GarrisonStats, error) {
	return f.garrison, nil
}

type fakeRegistry struct {
	ruler, empire, wall int64
	empires             map[int64]int64 // 指定王国的帝国归属；未指定回落到 empire
}

func (f fakeRegistry) Ruler(ctx context.Context, kingdomID int64) (int64, error) { return f.ruler, nil }
func (f fakeRegistry) Empire(ctx context.Context, kingdomID int64) (int64, error) {
	if e, ok := f.empires[kingdomID]; ok {
		return e, nil
	}
	return f.empire, nil
}
func (f fakeRegistry) WallBonus(ctx context.Context, kingdomID int64) (int64, error) {
	return f.wall, nil
}

type fakeTreasury struct {
	mu      sync.Mutex
	debits  map[int64]int64
	credits map[int64]int64

	debitErr  error
	creditErr error
}

func newFakeTreasury() *fakeTreasury {
	return &fakeTreasury{debits: map[int64]int64{}, credits: map[int64]int64{}}
}

func (f *fakeTreasury) Debit(ctx context.Context, account, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debits[account] += amount
	return nil
}

func (f *fakeTreasury) Credit(ctx context.Context, account, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credits[account] += amount
	return nil
}

type fakeNotifier struct {
	notices []DefeatNotice
	err     error
}

func (f *fakeNotifier) NotifyDefeat(ctx context.Context, n DefeatNotice) error {
	if f.err != nil {
		return f.err
	}
	f.notices = append(f.notices, n)
	return nil
}

type fakePublisher struct {
	mu          sync.Mutex
	territories []TerritoryUpdate
	resolutions []ResolutionUpdate
}

func (f *fakePublisher) PublishTerritory(battleID int64, upd TerritoryUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.territories = append(f.territories, upd)
}

func (f *fakePublisher) PublishResolution(battleID int64, upd ResolutionUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions = append(f.resolutions, upd)
}

type fakeQueue struct {
	tasks []ConsequenceTask
}

func (f *fakeQueue) Enqueue(task ConsequenceTask) {
	f.tasks = append(f.tasks, task)
}

type nopLogger struct{}

func (nopLogger) WithContext(ctx context.Context) logx.Logger { return nopLogger{} }
func (nopLogger) Info(msg string, fields ...zap.Field)        {}
func (nopLogger) Error(msg string, fields ...zap.Field)       {}
func (nopLogger) Debug(msg string, fields ...zap.Field)       {}
func (nopLogger) Warn(msg string, fields ...zap.Field)        {}

// scriptedRoller 按脚本依次吐随机数，耗尽后重复最后一个。
func scriptedRoller(draws ...int) Roller {
	i := 0
	return func() int {
		d := draws[i]
		if i < len(draws)-1 {
			i++
		}
		return d
	}
}

func seqIDGen() IDGen {
	var next int64 = 9000
	return func() (int64, error) {
		next++
		return next, nil
	}
}

// newEngine 组装一套完整的测试引擎。
type engine struct {
	repo       *memRepo
	stats      fakeStats
	registry   fakeRegistry
	treasury   *fakeTreasury
	notifier   *fakeNotifier
	publisher  *fakePublisher
	queue      *fakeQueue
	clockAt    time.Time
	lifecycle  *LifecycleService
	fight      *FightService
	ledger     *TerritoryLedger
	injuries   *InjuryTracker
	resolution *ResolutionService
}

func newEngine(stats fakeStats, registry fakeRegistry, roll Roller, at time.Time) *engine {
	e := &engine{
		repo:      newMemRepo(),
		stats:     stats,
		registry:  registry,
		treasury:  newFakeTreasury(),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		queue:     &fakeQueue{},
		clockAt:   at,
	}
	// clockAt 可由测试改写以推进时间。
	clock := func() time.Time { return e.clockAt }
	idGen := seqIDGen()
	log := nopLogger{}

	e.ledger = NewTerritoryLedger(memTerritories{e.repo}, e.publisher, log, clock)
	e.ledger.sleep = func(time.Duration) {}
	e.injuries = NewInjuryTracker(memInjuries{e.repo}, clock, 20*time.Minute)
	e.resolution = NewResolutionService(
		memBattles{e.repo}, memParticipants{e.repo}, stats, registry,
		e.treasury, e.notifier, e.repo, e.queue, e.publisher, nil, clock, log, Tunables{},
	)
	e.lifecycle = NewLifecycleService(
		memBattles{e.repo}, memParticipants{e.repo}, memTerritories{e.repo},
		e.resolution, idGen, clock, log, Tunables{},
	)
	e.fight = NewFightService(
		memBattles{e.repo}, memParticipants{e.repo}, memTerritories{e.repo},
		memSessions{e.repo}, memActions{e.repo}, stats,
		e.ledger, e.injuries, e.lifecycle, e.queue, roll, idGen, clock, log,
	)
	return e
}
