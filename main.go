//	@title			NFT Market API
//	@version		1.0.0
//	@description	Fixed-price marketplace for registry-held assets with service fees and royalties.
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MMN3003/nftmarket/src/Infrastructure/ethereum"
	"github.com/MMN3003/nftmarket/src/config"
	cronRepo "github.com/MMN3003/nftmarket/src/cron/repository"
	cronUC "github.com/MMN3003/nftmarket/src/cron/usecase"
	"github.com/MMN3003/nftmarket/src/logger"
	cron_adapter "github.com/MMN3003/nftmarket/src/market/adapter/cron"
	"github.com/MMN3003/nftmarket/src/market/adapter/payment"
	"github.com/MMN3003/nftmarket/src/market/adapter/registry"
	marketHD "github.com/MMN3003/nftmarket/src/market/delivery/http"
	"github.com/MMN3003/nftmarket/src/market/domain"
	marketRepo "github.com/MMN3003/nftmarket/src/market/repository"
	market "github.com/MMN3003/nftmarket/src/market/usecase"
	"github.com/MMN3003/nftmarket/src/metrics"

	_ "github.com/MMN3003/nftmarket/docs" // Swagger docs
	_ "github.com/lib/pq"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// reconciliation leases outlive any single run
const reconcileLeaseTTL = 10 * time.Minute

func main() {
	app := &cli.App{
		Name:   "nftmarket",
		Usage:  "fixed-price NFT marketplace ledger",
		Action: serve,
		Flags:  serveFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the escrow reconciliation job",
				Action: serve,
				Flags:  serveFlags,
			},
			{
				Name:   "reconcile",
				Usage:  "check once that every active listing is held by escrow",
				Action: reconcileOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("nftmarket: %v", err)
	}
}

var serveFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "seed",
		Usage: "mint a demo collection and fund a demo buyer (in-memory mode only)",
	},
}

// deps is the wired application.
type deps struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *gorm.DB
	promReg  *prometheus.Registry
	market   *market.Service
	balances marketHD.BalanceReader
	leases   cron_adapter.CronAdapter

	// set in in-memory mode only
	memRegistry *registry.MemoryRegistry
	memBank     *payment.MemoryBank

	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func build(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	d := &deps{
		cfg:     cfg,
		logg:    logger.New(cfg.Env, cfg.LogLevel),
		promReg: prometheus.NewRegistry(),
	}
	d.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(d.promReg)
	if err != nil {
		return nil, err
	}

	// --- Asset registry ---
	var assets domain.AssetRegistry
	if cfg.Ethereum.Enabled() {
		client, err := ethereum.NewERC721Client(ctx, ethereum.Config{
			RPCURL:     cfg.Ethereum.RPCURL,
			PrivateKey: cfg.Ethereum.PrivateKey,
			ChainID:    big.NewInt(cfg.Ethereum.ChainID),
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, client.Close)
		ethRegistry := registry.NewEthereumRegistry(client, d.logg)
		if escrow := string(ethRegistry.Escrow()); escrow != cfg.Market.EscrowAccount {
			d.logg.Warnf("escrow account %s replaced by signing wallet %s", cfg.Market.EscrowAccount, escrow)
			cfg.Market.EscrowAccount = escrow
		}
		assets = ethRegistry
		d.logg.Infof("Asset registry: ethereum chain %d via %s", cfg.Ethereum.ChainID, cfg.Ethereum.RPCURL)
	} else {
		d.memRegistry = registry.NewMemoryRegistry(domain.Account(cfg.Market.EscrowAccount), d.logg)
		assets = d.memRegistry
		d.logg.Warnf("Asset registry: in-memory (set ETH_RPC_URL to use a chain)")
	}

	// --- Storage ---
	var (
		listings domain.ListingRepository
		settings domain.SettingsRepository
		payments domain.PaymentGateway
		leases   *cronUC.Service
	)
	if cfg.UsesDatabase() {
		if err := d.openDatabase(); err != nil {
			return nil, err
		}
		lr, err := marketRepo.NewListingRepo(d.db, d.logg)
		if err != nil {
			return nil, fmt.Errorf("migrate listings: %w", err)
		}
		sr, err := marketRepo.NewSettingsRepo(d.db, d.logg)
		if err != nil {
			return nil, fmt.Errorf("migrate settings: %w", err)
		}
		bank, err := payment.NewPostgresBank(d.db, d.logg)
		if err != nil {
			return nil, fmt.Errorf("migrate balances: %w", err)
		}
		cr, err := cronRepo.NewCronRepo(d.db, d.logg)
		if err != nil {
			return nil, fmt.Errorf("migrate crons: %w", err)
		}
		listings, settings, payments = lr, sr, bank
		d.balances = bank
		leases = cronUC.NewService(cr, d.logg, reconcileLeaseTTL)
	} else {
		d.memBank = payment.NewMemoryBank(d.logg)
		listings, settings, payments = marketRepo.NewMemoryListingRepo(), marketRepo.NewMemorySettingsRepo(), d.memBank
		d.balances = d.memBank
		leases = cronUC.NewService(cronRepo.NewMemoryCronRepo(), d.logg, reconcileLeaseTTL)
		d.logg.Warnf("Storage: in-memory (set DATABASE_URL to persist)")
	}
	settings = marketRepo.NewCachedSettingsRepo(settings, cfg.Market.RoyaltyCacheTTL)
	d.leases = cron_adapter.NewCronPort(leases)

	d.market, err = market.NewService(ctx, listings, settings, assets, payments, d.logg, cfg, m)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.logg.Infof("Market admin %s, escrow %s, service fee %d bp",
		d.market.Admin(), d.market.Escrow(), d.market.GetServiceFee(ctx))
	return d, nil
}

func (d *deps) openDatabase() error {
	d.logg.Infof("Connecting to database (driver=%s)", d.cfg.DBDriver)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: d.cfg.DBDriver,
		DSN:        d.cfg.DatabaseURL,
	}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("get generic DB handle: %w", err)
	}

	// Connection pool tuning
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	d.db = gormDB
	d.closers = append(d.closers, func() { sqlDB.Close() })
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := build(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	logg := d.logg

	if c.Bool("seed") {
		if err := seedDemo(d); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	// --- Cron ---
	scheduler := cron.New(cron.WithSeconds())
	if err := market.NewCronService(scheduler, d.cfg.Reconcile.Schedule, d.market, d.leases, logg); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", d.cfg.Reconcile.Schedule, err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// --- Router ---
	if d.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Core middleware
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logg.WithFields(map[string]interface{}{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"account":  c.GetHeader(marketHD.AccountHeader),
		}).Infof("%s %s", c.Request.Method, c.Request.URL.Path)
	})

	// --- Healthcheck ---
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// --- Metrics ---
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.promReg, promhttp.HandlerOpts{})))

	// --- Swagger ---
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// --- API routes ---
	marketHD.NewHandler(d.market, d.balances, logg).RegisterRoutes(r)

	// --- Start server ---
	logg.Infof("Starting service on %s (env=%s)", d.cfg.ListenAddr, d.cfg.Env)
	logg.Infof("Swagger UI available at http://localhost%s/swagger/index.html", d.cfg.ListenAddr)

	srv := &http.Server{
		Addr:              d.cfg.ListenAddr,
		Handler:           r,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server terminated unexpectedly: %w", err)
	case <-ctx.Done():
	}

	logg.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func reconcileOnce(c *cli.Context) error {
	d, err := build(c.Context)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.leases.CreateCron(c.Context, market.ReconcileEscrowCronID); err != nil {
		return fmt.Errorf("take reconciliation lease: %w", err)
	}
	defer func() {
		if err := d.leases.DeleteCron(context.Background(), market.ReconcileEscrowCronID); err != nil {
			d.logg.Errorf("release reconciliation lease: %v", err)
		}
	}()

	found, err := d.market.ReconcileEscrow(c.Context)
	if err != nil {
		return err
	}
	for _, f := range found {
		fmt.Printf("listing %d\t%s\theld by %s\n", f.ListingID, f.Asset, f.Custodian)
	}
	if len(found) > 0 {
		return cli.Exit(fmt.Sprintf("%d escrow discrepancies", len(found)), 2)
	}
	fmt.Println("escrow consistent")
	return nil
}
