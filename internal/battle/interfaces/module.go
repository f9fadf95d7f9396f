package interfaces

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"KingdomWars/internal/battle/app"
	"KingdomWars/internal/battle/consequence"
	"KingdomWars/internal/battle/infra/audit"
	"KingdomWars/internal/battle/infra/repo"
	"KingdomWars/internal/battle/interfaces/handler"
	"KingdomWars/internal/battle/interfaces/ws"
	kingdomapp "KingdomWars/internal/kingdom/app"
	kingdomrepo "KingdomWars/internal/kingdom/infra/repo"
	"KingdomWars/internal/shared/serverconfig"
	"KingdomWars/internal/shared/transport/http/middleware"
	"KingdomWars/internal/shared/utils"
	"KingdomWars/modules/kit/logx"
)

// Module 组装战斗上下文的全套依赖并注册路由。
type Module struct {
	battle  *handler.Battle
	session *handler.Session
	hub     *ws.Hub
	queue   *consequence.Queue
}

func New(db *gorm.DB, mongoDB *mongo.Database, system *actor.ActorSystem,
	log logx.Logger, cfg serverconfig.BattleConfig) *Module {

	battles := repo.NewBattleRepo(db)
	participants := repo.NewParticipantRepo(db)
	territories := repo.NewTerritoryRepo(db)
	sessions := repo.NewSessionRepo(db)
	actions := repo.NewActionRepo(db)
	injuries := repo.NewInjuryRepo(db)
	resolutions := repo.NewResolutionRepo(db)

	kingdoms := kingdomrepo.NewKingdomRepo(db)
	nobles := kingdomrepo.NewNobleRepo(db)
	stats := kingdomapp.NewStatsService(nobles, kingdoms)
	registry := kingdomapp.NewRegistryService(kingdoms)
	treasury := kingdomapp.NewTreasuryService(kingdoms, nobles)

	sink := audit.NewSink(mongoDB)
	hub := ws.NewHub(log)
	queue := consequence.NewQueue(system, consequence.NewExecutor(treasury, sink, actions, sessions), log)

	tunables := app.Tunables{
		SpoilsPool:          cfg.SpoilsPool,
		InjuryDuration:      time.Duration(cfg.InjuryMinutes) * time.Minute,
		DefaultPledgeWindow: time.Duration(cfg.DefaultPledgeMinute) * time.Minute,
	}

	resolution := app.NewResolutionService(
		battles, participants, stats, registry,
		treasury, sink, resolutions, queue, hub, sink,
		nil, log, tunables,
	)
	lifecycle := app.NewLifecycleService(
		battles, participants, territories, resolution,
		utils.NextSnowflakeID, nil, log, tunables,
	)
	ledger := app.NewTerritoryLedger(territories, hub, log, nil)
	injuryTracker := app.NewInjuryTracker(injuries, nil, tunables.InjuryDuration)
	fight := app.NewFightService(
		battles, participants, territories, sessions, actions, stats,
		ledger, injuryTracker, lifecycle, queue,
		nil, utils.NextSnowflakeID, nil, log,
	)

	return &Module{
		battle:  handler.NewBattle(lifecycle, log),
		session: handler.NewSession(fight, log),
		hub:     hub,
		queue:   queue,
	}
}

// Register 挂载路由：观战是公开只读，其余都要求登录态。
func (m *Module) Register(r *gin.RouterGroup) {
	r.GET("/api/battles/:id/watch", m.hub.Watch)

	authed := r.Group("", middleware.Auth())
	authed.POST("/api/battles", m.battle.Open)
	authed.POST("/api/battles/:id/pledge", m.battle.Pledge)
	authed.GET("/api/battles/:id", m.battle.Summary)
	authed.POST("/api/battles/:id/sessions", m.session.Open)
	authed.GET("/api/battles/:id/sessions", m.session.Get)
	authed.POST("/api/battles/:id/sessions/roll", m.session.Roll)
	authed.POST("/api/battles/:id/sessions/resolve", m.session.Resolve)
}

// Stop 停掉后果队列 actor。
func (m *Module) Stop() {
	m.queue.Stop()
}
