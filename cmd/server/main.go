package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/storelane/ledger-engine/internal/adapter/repository/postgres"
	"github.com/storelane/ledger-engine/internal/config"
	"github.com/storelane/ledger-engine/internal/logger"
	"github.com/storelane/ledger-engine/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := postgres.RunMigrations(migrateCtx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ledgerRepo := postgres.NewLedgerRepository(db)
	payoutRepo := postgres.NewPayoutRepository(db)
	storeRepo := postgres.NewStoreRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := services.NewAuditService(auditRepo)
	ledgerSvc := services.NewLedgerService(ledgerRepo)
	commissionSvc := services.NewCommissionService()
	settlementSvc := services.NewSettlementService(ledgerRepo, payoutRepo, storeRepo, ledgerSvc, commissionSvc, auditSvc)

	logger.Info("settlement runner started", logger.Fields{
		"interval": cfg.SettlementInterval.String(),
	})

	ticker := time.NewTicker(cfg.SettlementInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("settlement runner stopped", nil)
			return
		case <-ticker.C:
			if err := settlementSvc.RunSettlement(ctx, time.Now().UTC()); err != nil {
				logger.Error("settlement run failed", err, nil)
			}
		}
	}
}
