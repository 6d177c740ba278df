package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gomodule/redigo/redis"
	ipfsapi "github.com/ipfs/go-ipfs-api"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	"github.com/openmint/goapi/base/database/redisclient"
	"github.com/openmint/goapi/base/log"
	bValidator "github.com/openmint/goapi/base/validator"
	"github.com/openmint/goapi/domain"
	mmiddleware "github.com/openmint/goapi/middleware"
	"github.com/openmint/goapi/service/hub"
	serviceLedger "github.com/openmint/goapi/service/ledger"
	"github.com/openmint/goapi/service/query"
	account_repository "github.com/openmint/goapi/stores/account/repository"
	account_usecase "github.com/openmint/goapi/stores/account/usecase"
	asset_repository "github.com/openmint/goapi/stores/asset/repository"
	auction_repository "github.com/openmint/goapi/stores/auction/repository"
	auth_delivery "github.com/openmint/goapi/stores/auth/delivery/http"
	auth_middleware "github.com/openmint/goapi/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/openmint/goapi/stores/auth/usecase"
	hc_delivery "github.com/openmint/goapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/openmint/goapi/stores/healthcheck/repository"
	hc_usecase "github.com/openmint/goapi/stores/healthcheck/usecase"
	ledger_repository "github.com/openmint/goapi/stores/ledger/repository"
	listing_repository "github.com/openmint/goapi/stores/listing/repository"
	market_delivery "github.com/openmint/goapi/stores/market/delivery/http"
	market_usecase "github.com/openmint/goapi/stores/market/usecase"
	metadata_delivery "github.com/openmint/goapi/stores/metadata/delivery/http"
	metadata_repository "github.com/openmint/goapi/stores/metadata/repository"
	metadata_usecase "github.com/openmint/goapi/stores/metadata/usecase"
)

func init() {
	pflag.String("config", "infra/configs/config.yaml", "path to config file")
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
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client
	context.Info("init mongo")
	mongoClient := mongoclient.MustConnect(mongoclient.ConnectOptions{
		Uri:        viper.GetString("mongo.uri"),
		AuthDbName: viper.GetString("mongo.authDBName"),
		DbName:     viper.GetString("mongo.dbName"),
		Ssl:        viper.GetBool("mongo.enableSSL"),
		SetSafe:    true,
	})
	q := query.New(mongoClient)
	if err := ledger_repository.EnsureIndexes(context, q); err != nil {
		context.WithField("err", err).Panic("ledger EnsureIndexes failed")
	}

	// the redis bridge is optional, a single instance deployment works
	// without it
	var bridge hub.Bridge
	var redisPool *redis.Pool
	if redisURI := viper.GetString("redis.uri"); redisURI != "" {
		context.Info("init redis")
		redisPool = redisclient.MustConnect(redisclient.ConnectOptions{
			Uri:            redisURI,
			Password:       viper.GetString("redis.password"),
			PoolMultiplier: viper.GetFloat64("redis.poolMultiplier"),
		})
		bridge = hub.NewRedisBridge(redisPool)
	}

	eventHub := hub.New(&hub.HubCfg{Bridge: bridge})
	eventHub.Run(context)

	// init ledger client
	networks := viper.Sub("networks")
	rpcs := make(map[domain.ChainId]string)
	contracts := make(map[domain.ChainId]string)
	for k := range networks.AllSettings() {
		chainId := domain.ChainId(networks.GetInt32(fmt.Sprintf("%s.chainId", k)))
		rpcs[chainId] = networks.GetString(fmt.Sprintf("%s.rpcUrl", k))
		contracts[chainId] = networks.GetString(fmt.Sprintf("%s.marketplace", k))
	}
	ledgerClient, err := serviceLedger.NewEth(context, &serviceLedger.EthCfg{
		RpcUrls:           rpcs,
		ContractAddresses: contracts,
		PrivateKey:        viper.GetString("ledger.privateKey"),
		Confirmations:     viper.GetUint64("ledger.confirmations"),
	})
	if err != nil {
		context.WithField("err", err).Panic("ledger client init failed")
	}

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient, redisPool)
	assetRepo := asset_repository.NewAssetRepo(q)
	listingRepo := listing_repository.NewListingRepo(q)
	auctionRepo := auction_repository.NewAuctionRepo(q)
	bidRepo := auction_repository.NewBidRepo(q)
	accountRepo := account_repository.NewAccountRepo(q)
	pendingWriteRepo := ledger_repository.NewPendingWriteRepo(q)
	txRecordRepo := ledger_repository.NewTxRecordRepo(q)

	ipfsShell := ipfsapi.NewShell(viper.GetString("ipfs.apiUri"))
	webResourceRepo := metadata_repository.NewWebResourceRepo(ipfsShell, viper.GetDuration("context.timeout"))

	hc := hc_usecase.New(hcRepo)
	account := account_usecase.New(accountRepo)
	auth := auth_usecase.New(viper.GetString("auth.jwtSecret"), account)
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
	metadata := metadata_usecase.New(&metadata_usecase.MetadataCfg{
		WebResource: webResourceRepo,
	})

	authMiddleware := auth_middleware.New(auth)

	hc_delivery.New(e, hc)
	auth_delivery.New(e, auth)
	market_delivery.New(e, marketUC, assetRepo, listingRepo, auctionRepo, bidRepo, txRecordRepo, eventHub, authMiddleware)
	metadata_delivery.New(e, metadata, assetRepo)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
