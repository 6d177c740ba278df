package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	bCtx "github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	"github.com/openmint/goapi/base/database/redisclient"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	mmiddleware "github.com/openmint/goapi/middleware"
	"github.com/openmint/goapi/service/alert"
	"github.com/openmint/goapi/service/hub"
	serviceLedger "github.com/openmint/goapi/service/ledger"
	"github.com/openmint/goapi/service/query"
	asset_repository "github.com/openmint/goapi/stores/asset/repository"
	"github.com/openmint/goapi/stores/auction/clock"
	auction_repository "github.com/openmint/goapi/stores/auction/repository"
	ledger_repository "github.com/openmint/goapi/stores/ledger/repository"
	ledger_usecase "github.com/openmint/goapi/stores/ledger/usecase"
	listing_repository "github.com/openmint/goapi/stores/listing/repository"
	market_usecase "github.com/openmint/goapi/stores/market/usecase"
)

func init() {
	pflag.String("config", "infra/configs/settler/config.yaml", "path to config file")
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)

	viper.SetConfigType("yaml")
	viper.SetConfigFile(viper.GetString("config"))
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	ctx, cancel := bCtx.WithCancel(bCtx.Background())

	// start server to pass cloud run health check
	startEchoServer()

	ctx.Info("init mongo")
	mongoClient := mongoclient.MustConnect(mongoclient.ConnectOptions{
		Uri:        viper.GetString("mongo.uri"),
		AuthDbName: viper.GetString("mongo.authDBName"),
		DbName:     viper.GetString("mongo.dbName"),
		Ssl:        viper.GetBool("mongo.enableSSL"),
		SetSafe:    true,
	})
	q := query.New(mongoClient)
	if err := ledger_repository.EnsureIndexes(ctx, q); err != nil {
		ctx.WithField("err", err).Panic("ledger EnsureIndexes failed")
	}

	// events raised while settling still have to reach sessions on the api
	// instances, so the settler publishes through the same redis bridge
	var bridge hub.Bridge
	if redisURI := viper.GetString("redis.uri"); redisURI != "" {
		ctx.Info("init redis")
		redisPool := redisclient.MustConnect(redisclient.ConnectOptions{
			Uri:            redisURI,
			Password:       viper.GetString("redis.password"),
			PoolMultiplier: viper.GetFloat64("redis.poolMultiplier"),
		})
		bridge = hub.NewRedisBridge(redisPool)
	}
	eventHub := hub.New(&hub.HubCfg{Bridge: bridge})

	var alertService alert.Service
	if botKey := viper.GetString("discord.botKey"); botKey != "" {
		var err error
		alertService, err = alert.NewDiscord(&alert.DiscordCfg{
			BotKey:    botKey,
			ChannelId: viper.GetString("discord.channelId"),
		})
		if err != nil {
			ctx.WithField("err", err).Panic("alert.NewDiscord failed")
		}
	} else {
		alertService = alert.NewNop()
	}

	networks := viper.Sub("networks")
	rpcs := make(map[domain.ChainId]string)
	contracts := make(map[domain.ChainId]string)
	for k := range networks.AllSettings() {
		chainId := domain.ChainId(networks.GetInt32(fmt.Sprintf("%s.chainId", k)))
		rpcs[chainId] = networks.GetString(fmt.Sprintf("%s.rpcUrl", k))
		contracts[chainId] = networks.GetString(fmt.Sprintf("%s.marketplace", k))
	}
	ledgerClient, err := serviceLedger.NewEth(ctx, &serviceLedger.EthCfg{
		RpcUrls:           rpcs,
		ContractAddresses: contracts,
		PrivateKey:        viper.GetString("ledger.privateKey"),
		Confirmations:     viper.GetUint64("ledger.confirmations"),
	})
	if err != nil {
		ctx.WithField("err", err).Panic("ledger client init failed")
	}

	// repos
	assetRepo := asset_repository.NewAssetRepo(q)
	listingRepo := listing_repository.NewListingRepo(q)
	auctionRepo := auction_repository.NewAuctionRepo(q)
	bidRepo := auction_repository.NewBidRepo(q)
	pendingWriteRepo := ledger_repository.NewPendingWriteRepo(q)
	txRecordRepo := ledger_repository.NewTxRecordRepo(q)

	// usecases
	marketUC := market_usecase.New(&market_usecase.MarketUseCaseCfg{
		AssetRepo:        assetRepo,
		ListingRepo:      listingRepo,
		AuctionRepo:      auctionRepo,
		BidRepo:          bidRepo,
		PendingWriteRepo: pendingWriteRepo,
		TxRecordRepo:     txRecordRepo,
		LedgerClient:     ledgerClient,
		EventPublisher:   eventHub,
	})

	auctionClock := clock.New(&clock.ClockCfg{
		AuctionRepo:  auctionRepo,
		MarketUC:     marketUC,
		ScanInterval: viper.GetDuration("clock.scanInterval"),
		ScanBatch:    viper.GetInt32("clock.scanBatch"),
	})
	reconciler := ledger_usecase.New(&ledger_usecase.ReconcilerCfg{
		PendingWriteRepo: pendingWriteRepo,
		LedgerClient:     ledgerClient,
		MarketUC:         marketUC,
		Alert:            alertService,
		PollInterval:     viper.GetDuration("reconciler.pollInterval"),
		MaxRetries:       viper.GetInt("reconciler.maxRetries"),
		BatchSize:        viper.GetInt32("reconciler.batchSize"),
		Workers:          viper.GetInt("reconciler.workers"),
	})

	ctx.Info("starting workers")
	auctionClock.Run(ctx)
	reconciler.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	cancel()
}

func startEchoServer() {
	context := bCtx.Background()

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())

	address := viper.GetString("server.address")
	context.WithField("address", address).Info("starting server")
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			context.Error("shutting down the server")
		}
	}()
}
