package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/database"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/logger"
	mqttcommon "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/mqtt"
	rediscommon "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/redis"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/config"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/consumer"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	httpapi "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/http"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/metrics"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/notify"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/scheduler"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// repos 所有仓库，DB 不可用时使用内存实现
type repos struct {
	points    repository.DataPointsRepository
	samples   repository.SamplesRepository
	stats     repository.StatisticsRepository
	configs   repository.AlarmConfigsRepository
	records   repository.AlarmRecordsRepository
	models    repository.AnalysisModelsRepository
	nodes     repository.SpaceNodesRepository
	meters    repository.MetersRepository
	formulas  repository.FormulasRepository
	modules   repository.ModulesRepository
	roles     repository.RolesRepository
	rolePerms repository.RolePermissionsRepository
}

func postgresRepos(db *sql.DB) repos {
	return repos{
		points:    repository.NewPostgresDataPointsRepository(db),
		samples:   repository.NewPostgresSamplesRepository(db),
		stats:     repository.NewPostgresStatisticsRepository(db),
		configs:   repository.NewPostgresAlarmConfigsRepository(db),
		records:   repository.NewPostgresAlarmRecordsRepository(db),
		models:    repository.NewPostgresAnalysisModelsRepository(db),
		nodes:     repository.NewPostgresSpaceNodesRepository(db),
		meters:    repository.NewPostgresMetersRepository(db),
		formulas:  repository.NewPostgresFormulasRepository(db),
		modules:   repository.NewPostgresModulesRepository(db),
		roles:     repository.NewPostgresRolesRepository(db),
		rolePerms: repository.NewPostgresRolePermissionsRepository(db),
	}
}

// memoryRepos 联调用：内置 admin 角色
func memoryRepos() repos {
	return repos{
		points:    repository.NewMemoryDataPointsRepo(),
		samples:   repository.NewMemorySamplesRepo(),
		stats:     repository.NewMemoryStatisticsRepo(),
		configs:   repository.NewMemoryAlarmConfigsRepo(),
		records:   repository.NewMemoryAlarmRecordsRepo(),
		models:    repository.NewMemoryAnalysisModelsRepo(),
		nodes:     repository.NewMemorySpaceNodesRepo(),
		meters:    repository.NewMemoryMetersRepo(),
		formulas:  repository.NewMemoryFormulasRepo(),
		modules:   repository.NewMemoryModulesRepo(),
		roles:     repository.NewMemoryRolesRepo(&domain.Role{ID: "00000000-0000-0000-0000-000000000001", Name: "ADMIN"}),
		rolePerms: repository.NewMemoryRolePermissionsRepo(),
	}
}

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "remote-monitoring")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 数据库（可选）
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for remote-monitoring")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	var r repos
	if db != nil {
		defer db.Close()
		r = postgresRepos(db)
	} else {
		r = memoryRepos()
	}

	// Redis（可选）：实时值缓存 + 报警 Stream
	var (
		redisClient *redis.Client
		cache       *store.RealtimeCache
	)
	if cfg.RedisEnabled {
		if c, err := rediscommon.NewRedisClient(ctx, &cfg.Redis); err == nil {
			redisClient = c
			defer redisClient.Close()
			cache = store.NewRealtimeCache(store.NewRedisKV(redisClient), cfg.Monitoring.Cache.KeyPrefix, cfg.Monitoring.Cache.TTL)
			log.Info("Redis enabled for remote-monitoring", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but connection failed, realtime cache disabled", zap.Error(err))
		}
	}

	dispatcher := notify.NewDispatcher(log)
	dispatcher.Register(notify.MethodWebhook, notify.NewWebhookNotifier(cfg.Monitoring.Notify.WebhookTimeout))
	if redisClient != nil {
		dispatcher.Register(notify.MethodStream, notify.NewStreamNotifier(redisClient, cfg.Monitoring.Notify.StreamName, cfg.Monitoring.Notify.StreamMaxLen))
	}

	// 服务
	alarms := service.NewAlarmService(r.configs, r.records, r.points, dispatcher, log)
	telemetry := service.NewTelemetryService(r.points, r.samples, r.models, cache, alarms, log)
	curves := service.NewCurveService(r.points, r.samples, r.stats, r.models, log)
	formulas := service.NewFormulaService(r.formulas, r.points, telemetry, log)
	modules := service.NewModuleService(r.modules, log)

	router := httpapi.NewRouter(log)
	router.RegisterAlarmRoutes(httpapi.NewAlarmHandler(alarms, log))
	router.RegisterDataPointRoutes(httpapi.NewDataPointHandler(service.NewDataPointService(r.points, r.meters, cache, log), log))
	router.RegisterMonitoringRoutes(httpapi.NewMonitoringHandler(telemetry, curves, log))
	router.RegisterSpaceNodeRoutes(httpapi.NewSpaceNodeHandler(service.NewSpaceNodeService(r.nodes, log), log))
	router.RegisterMeterRoutes(httpapi.NewMeterHandler(service.NewMeterService(r.meters, r.nodes, r.points, log), log))
	router.RegisterAnalysisModelRoutes(httpapi.NewAnalysisModelHandler(service.NewAnalysisModelService(r.models, r.points, log), log))
	router.RegisterFormulaRoutes(httpapi.NewFormulaHandler(formulas, log))
	router.RegisterModuleRoutes(httpapi.NewModuleHandler(modules, log))
	router.RegisterPermissionRoutes(httpapi.NewPermissionHandler(service.NewPermissionService(r.modules, r.roles, r.rolePerms, log), log))
	router.RegisterOpsRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, metrics.Middleware(router), log)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()

	// MQTT 采集（可选）
	var mqttClient *mqttcommon.Client
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		if c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log); err != nil {
			log.Warn("MQTT enabled but connection failed, telemetry consumer disabled", zap.Error(err))
		} else {
			mqttClient = c
			mqttConsumer, err = consumer.NewMQTTConsumer(mqttClient, telemetry, cfg.MQTT.TelemetryTopic, cfg.MQTT.QoS, log)
			if err != nil {
				log.Fatal("Invalid telemetry topic", zap.Error(err))
			}
			go func() {
				if err := mqttConsumer.Start(ctx); err != nil {
					errCh <- err
				}
			}()
		}
	}

	// 虚拟表定时计算
	var formulaScheduler *scheduler.FormulaScheduler
	if cfg.Monitoring.FormulaSchedule != "" {
		formulaScheduler = scheduler.NewFormulaScheduler(formulas, cfg.Monitoring.FormulaSchedule, log)
		if err := formulaScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start formula scheduler", zap.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("Service exited with error", zap.Error(err))
		}
	}
	cancel()

	if formulaScheduler != nil {
		formulaScheduler.Stop()
	}
	if mqttConsumer != nil {
		_ = mqttConsumer.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	log.Info("remote-monitoring stopped")
}
