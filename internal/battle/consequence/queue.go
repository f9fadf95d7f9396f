package consequence

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"KingdomWars/internal/battle/app"
	"KingdomWars/modules/kit/logx"
)

const (
	maxAttempts = 5
	backoffStep = 2 * time.Second
	execTimeout = 5 * time.Second
)

// Queue 是结算后副作用的异步重试队列：每个任务带上限指数退避，
// 由单个 actor 串行消费，天然免锁。
type Queue struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func NewQueue(system *actor.ActorSystem, exec *Executor, log logx.Logger) *Queue {
	props := actor.PropsFromProducer(func() actor.Actor {
		return newQueueActor(system, exec, log)
	})
	return &Queue{
		system: system,
		pid:    system.Root.Spawn(props),
	}
}

func (q *Queue) Enqueue(task app.ConsequenceTask) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	q.system.Root.Send(q.pid, &attempt{task: task, n: 1})
}

func (q *Queue) Stop() {
	q.system.Root.Stop(q.pid)
}

// attempt 是第 n 次执行请求。
type attempt struct {
	task app.ConsequenceTask
	n    int
}

type queueActor struct {
	system *actor.ActorSystem
	exec   *Executor
	log    logx.Logger
}

func newQueueActor(system *actor.ActorSystem, exec *Executor, log logx.Logger) *queueActor {
	return &queueActor{
		system: system,
		exec:   exec,
		log:    log,
	}
}

func (a *queueActor) Receive(ctx actor.Context) {
	msg, ok := ctx.Message().(*attempt)
	if !ok {
		return
	}

	execCtx, cancel := context.WithTimeout(context.Background(), execTimeout)
	err := a.exec.Execute(execCtx, msg.task)
	cancel()
	if err == nil {
		if msg.n > 1 {
			a.log.Info("consequence task recovered",
				zap.String("task_id", msg.task.ID),
				zap.String("kind", msg.task.Kind),
				zap.Int("attempt", msg.n))
		}
		return
	}

	if msg.n >= maxAttempts {
		// 重试耗尽：留日志人工对账
		a.log.Error("consequence task dropped after retries",
			zap.String("task_id", msg.task.ID),
			zap.String("kind", msg.task.Kind),
			zap.Int64("battle_id", msg.task.BattleId),
			zap.Error(err))
		return
	}

	a.log.Warn("consequence task failed, will retry",
		zap.String("task_id", msg.task.ID),
		zap.String("kind", msg.task.Kind),
		zap.Int("attempt", msg.n),
		zap.Error(err))

	self := ctx.Self()
	next := &attempt{task: msg.task, n: msg.n + 1}
	time.AfterFunc(backoffStep*time.Duration(msg.n), func() {
		a.system.Root.Send(self, next)
	})
}
