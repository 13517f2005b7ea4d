package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ammindexer/internal/api"
	"ammindexer/internal/backfill"
	"ammindexer/internal/config"
	"ammindexer/internal/indexer"
	"ammindexer/internal/repository"
	"ammindexer/internal/rpc"
	"ammindexer/internal/stats"
	"ammindexer/internal/tokenprice"

	"github.com/ethereum/go-ethereum/common"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Println("Initializing AMM indexer backend...")
	log.Printf("build: %s", BuildCommit)
	log.Printf("DB: %s", config.RedactDatabaseURL(cfg.DatabaseURL))
	log.Printf("RPC: %s", cfg.RemoteWeb3URL)
	log.Printf("API Port: %d", cfg.ServerPort)

	repo, err := repository.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer repo.Close()

	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("database migration skipped (SKIP_MIGRATION=true)")
	} else {
		if terminated, err := repo.TerminateIdleConnections(context.Background()); err != nil {
			log.Printf("warning: failed to terminate idle connections: %v", err)
		} else if terminated > 0 {
			log.Printf("terminated %d idle connection(s) before migration", terminated)
		}

		log.Println("running database migration...")
		if err := repo.Migrate("schema.sql"); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		log.Println("database migration complete.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rpcClient, err := rpc.New(ctx, cfg.RemoteWeb3URL, 10)
	if err != nil {
		log.Fatalf("dial rpc: %v", err)
	}

	registry := indexer.NewRegistry(rpcClient, repo, config.ETHAddress())

	indexerSvc, err := indexer.NewService(ctx, rpcClient, repo, registry, indexer.Config{
		FactoryAddress:   common.HexToAddress(cfg.ContractAddress),
		LaunchpadAddress: common.HexToAddress(cfg.LaunchpadAddress),
		WatchInterval:    cfg.WatchTimeInterval,
		StartBlock:       cfg.SyncStartBlock,
	})
	if err != nil {
		log.Fatalf("init indexer: %v", err)
	}

	backfillSvc := backfill.NewService(rpcClient, repo, cfg.WatchTimeInterval)

	tokenpriceSvc := tokenprice.NewService(repo, tokenprice.Config{
		CoingeckoURL: cfg.CoingeckoURL,
		USDCAddress:  config.USDCAddress(),
		ETHAddress:   config.ETHAddress(),
		Interval:     cfg.TickPriceTimeInterval,
	})

	// The daily-statistics aggregator and its launchpad snapshot run once
	// an hour regardless of WATCH_TIME_INTERVAL — both write append-only
	// rows meant to accrue once per day/tick, not once per chain-scan tick.
	statsSvc, err := stats.NewService(repo, cfg.StatStartDate, time.Hour)
	if err != nil {
		log.Fatalf("init stats: %v", err)
	}

	server := api.NewServer(repo, cfg.ServerPort)

	var wg sync.WaitGroup
	runTask := func(name string, run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("%s: starting", name)
			run(ctx)
			log.Printf("%s: stopped", name)
		}()
	}

	runTask("indexer", indexerSvc.Run)
	runTask("backfill", backfillSvc.Run)
	runTask("tokenprice", tokenpriceSvc.Run)
	runTask("stats", statsSvc.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("http: listening on :%d", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil {
			log.Printf("http: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.WatchTimeInterval)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	wg.Wait()
	log.Println("shutdown complete.")
}
