package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/devmesh/chat/data/events"
	"github.com/devmesh/chat/data/mutate"
	"github.com/devmesh/chat/data/query"
	"github.com/devmesh/chat/internal/chat"
	"github.com/devmesh/chat/internal/configure"
	"github.com/devmesh/chat/internal/global"
	"github.com/devmesh/chat/internal/health"
	"github.com/devmesh/chat/internal/monitoring"
	"github.com/devmesh/chat/internal/svc/delivery"
	"github.com/devmesh/chat/internal/svc/mongo"
	"github.com/devmesh/chat/internal/svc/presence"
	"github.com/devmesh/chat/internal/svc/prometheus"
	"github.com/devmesh/chat/internal/svc/redis"
	"go.uber.org/zap"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Errorw("panic detected",
			"panic", s,
		)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		zap.S().Info("DevMesh Chat")
		zap.S().Infof("Version: %s", Version)
		zap.S().Infof("build.Time: %s", Time)
		zap.S().Infof("build.User: %s", User)
	}

	zap.S().Debugf("MaxProcs: %d", runtime.GOMAXPROCS(0))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	{
		ctx, cancel := global.WithTimeout(gCtx, time.Second*15)

		mongoInst, err := mongo.Setup(ctx, mongo.SetupOptions{
			URI:    config.Mongo.URI,
			DB:     config.Mongo.DB,
			Direct: config.Mongo.Direct,
		})
		if err != nil {
			zap.S().Fatalw("failed to connect to mongo",
				"error", err,
			)
		}

		cancel()

		gCtx.Inst().Mongo = mongoInst
	}

	{
		ctx, cancel := global.WithTimeout(gCtx, time.Second*15)

		redisInst, err := redis.Setup(ctx, redis.SetupOptions{
			Username:   config.Redis.Username,
			Password:   config.Redis.Password,
			Database:   config.Redis.Database,
			Sentinel:   config.Redis.Sentinel,
			MasterName: config.Redis.MasterName,
			Addresses:  config.Redis.Addresses,
		})
		if err != nil {
			zap.S().Fatalw("failed to connect to redis",
				"error", err,
			)
		}

		cancel()

		gCtx.Inst().Redis = redisInst
	}

	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
		Labels: config.Monitoring.Labels.ToPrometheus(),
	})

	gCtx.Inst().Events = events.NewPublisher(gCtx, events.Options{
		Redis: gCtx.Inst().Redis,
	})

	gCtx.Inst().Presence = presence.New(presence.Options{
		Redis: gCtx.Inst().Redis,
	})

	gCtx.Inst().Query = query.New(gCtx.Inst().Mongo)
	gCtx.Inst().Mutate = mutate.New(gCtx.Inst().Mongo)

	gCtx.Inst().Delivery = delivery.New(delivery.Options{
		Presence:   gCtx.Inst().Presence,
		Query:      gCtx.Inst().Query,
		Mutate:     gCtx.Inst().Mutate,
		Events:     gCtx.Inst().Events,
		Prometheus: gCtx.Inst().Prometheus,
	})

	wg := sync.WaitGroup{}

	if gCtx.Config().Health.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-health.New(gCtx)
		}()
	}

	if gCtx.Config().Monitoring.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-monitoring.New(gCtx)
		}()
	}

	done := make(chan struct{})
	go func() {
		<-sig
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			zap.S().Fatal("force shutdown")
		}()

		zap.S().Info("shutting down")

		wg.Wait()

		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := chat.New(gCtx); err != nil {
			zap.S().Fatalw("chat failed",
				"error", err,
			)
		}
	}()

	zap.S().Info("running")

	<-done

	zap.S().Info("shutdown")
	os.Exit(0)
}
