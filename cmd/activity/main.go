package main

import (
	"context"
	"flag"
	"fmt"

	"glyph-wallet-go/internal/common"
	"glyph-wallet-go/internal/config"
	"glyph-wallet-go/internal/models"

	"go.uber.org/zap"
)

func printActivity(activity models.TransferActivity, isLast bool) {
	fmt.Printf("%s %s  %-8s %-7s %s -> %s  (%s)\n",
		common.BoxPrefix(isLast),
		activity.CreatedAt.Format("2006-01-02 15:04:05"),
		activity.Token,
		activity.Status,
		common.ShortHash(activity.Hash),
		common.ShortHash(activity.To),
		activity.AmountWei)
	if activity.ExplorerUrl != "" {
		fmt.Printf("│     %s\n", activity.ExplorerUrl)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fromFlag := flag.String("from", "", "Only show transfers sent from this address (optional)")
	limitFlag := flag.Int("limit", 20, "Number of entries to show")
	offsetFlag := flag.Int("offset", 0, "Number of entries to skip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	from := ""
	if *fromFlag != "" {
		address, err := models.ParseAddress(*fromFlag)
		if err != nil {
			logger.Fatal("Invalid address", zap.Error(err))
		}
		from = models.NormalizeAddress(address)
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	activities, err := dbService.ListTransfers(ctx, from, *limitFlag, *offsetFlag)
	if err != nil {
		logger.Fatal("Failed to list transfers", zap.Error(err))
	}

	common.PrintHeader("TRANSFER ACTIVITY", common.WideWidth)
	for i, activity := range activities {
		printActivity(activity, i == len(activities)-1)
	}
	common.PrintFooter(fmt.Sprintf("%d transfers", len(activities)), common.WideWidth)
}
