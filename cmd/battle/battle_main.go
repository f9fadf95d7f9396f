package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"KingdomWars/internal/battle/interfaces"
	"KingdomWars/internal/shared/infrastructure/db"
	sharedmongo "KingdomWars/internal/shared/infrastructure/mongo"
	"KingdomWars/internal/shared/logs"
	"KingdomWars/internal/shared/serverconfig"
	transporthttp "KingdomWars/internal/shared/transport/http"
	"KingdomWars/modules/kit/logx"
)

func main() {
	serverconfig.Load("")
	if err := logs.Init("battle", serverconfig.Conf.Log); err != nil {
		panic(err)
	}
	logs.Info("conf", zap.Any("conf", serverconfig.Conf))

	gormDB, err := db.Open(serverconfig.Conf.MySQL)
	if err != nil {
		logs.Fatal("open db failed", zap.Error(err))
	}

	mongoClient, err := sharedmongo.Open(serverconfig.Conf.MongoDB, logs.Logger())
	if err != nil {
		logs.Fatal("open mongodb failed", zap.Error(err))
	}
	mongoDB := mongoClient.Database(serverconfig.Conf.MongoDB.Database)

	system := actor.NewActorSystem()

	host := serverconfig.Conf.BattleServer.Host
	if host == "" {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, serverconfig.Conf.BattleServer.Port)

	logger := logx.NewZapLogger(logs.Logger())
	server := transporthttp.NewHttpServer(addr, nil, logger)

	module := interfaces.New(gormDB, mongoDB, system, logger, serverconfig.Conf.Battle)
	module.Register(server.Group())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logs.Info("battle http server started", zap.String("addr", addr))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("battle http serve failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		if err != nil {
			logs.Error("服务异常退出", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Error("http shutdown failed", zap.Error(err))
	}
	module.Stop()
	system.Shutdown()
	_ = mongoClient.Disconnect(context.Background())
}
