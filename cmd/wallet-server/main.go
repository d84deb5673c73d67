package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"runewallet/internal/handler"
	"runewallet/internal/model"
	"runewallet/internal/server"
	"runewallet/internal/service"
	"runewallet/internal/service/memoless"
	"runewallet/internal/service/mq"
	"runewallet/internal/service/pricing"
	"runewallet/internal/service/thornode"
	"runewallet/internal/service/wallet"
	"runewallet/pkg/config"
	"runewallet/pkg/database"
	"runewallet/pkg/logger"
	"runewallet/pkg/validator"
)

// @title RuneWallet API
// @version 1.0
// @description THORChain wallet service with memoless deposit support

// @host localhost:8080
// @BasePath /api/v1
func main() {
	config.Init()
	validator.Init()

	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 数据库
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		logger.Fatal("表结构迁移失败", zap.Error(err))
	}

	// Redis
	rdb, err := database.ConnectRedis(
		config.Global.Redis.Addr,
		config.Global.Redis.Password,
		config.Global.Redis.DB,
	)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 链节点客户端
	backend := thornode.NewClient(
		config.Global.Thornode.BaseURL,
		time.Duration(config.Global.Thornode.Timeout)*time.Second,
	)

	// MQ: 单机默认 redis streams, 集群部署切 kafka
	var producer mq.Producer
	if config.Global.Redis.MQType == "kafka" {
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, "")
	} else {
		producer = mq.NewRedisProducer(rdb)
	}

	// 业务服务
	prices := pricing.NewService(backend, rdb)
	wallets := wallet.NewService(db, backend, config.Global.Thornode.ChainID)
	walletSessions := wallet.NewSessionStore(rdb, time.Duration(config.Global.Wallet.SessionTTL)*time.Minute)
	sessions := memoless.NewManager(backend, prices, wallets, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := service.NewRelayService(db, producer)
	go relay.Start(ctx)

	// 广播事件消费: 回查确认进度, 写审计日志
	var consumer mq.Consumer
	if config.Global.Redis.MQType == "kafka" {
		consumer = mq.NewKafkaConsumer(config.Global.Kafka.Brokers, "wallet-notifier")
	} else {
		consumer = mq.NewRedisConsumer(rdb, "wallet-notifier", "notifier-1")
	}
	notifier := service.NewNotifier(consumer, backend)
	go func() {
		if err := notifier.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("事件消费退出", zap.Error(err))
		}
	}()

	cronSvc := service.NewCronService(rdb, prices)
	cronSvc.Start()
	defer cronSvc.Stop()

	// HTTP + gRPC
	router := server.NewHTTPRouter(&server.Handlers{
		Wallet:   handler.NewWalletHandler(wallets, walletSessions),
		Send:     handler.NewSendHandler(wallets),
		Memoless: handler.NewMemolessHandler(sessions),
		Chain:    handler.NewChainHandler(backend),
	})
	app := server.NewApp(
		":"+config.Global.App.HttpPort,
		":"+config.Global.App.GrpcPort,
		router,
	)
	app.Start()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到退出信号, 开始优雅停机")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	app.Shutdown(shutdownCtx)
}
