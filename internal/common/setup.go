package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/auth"
	"glyph-wallet-go/internal/chain"
	"glyph-wallet-go/internal/database"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
	"glyph-wallet-go/internal/transfer"
	"glyph-wallet-go/internal/widget"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Api       *api.Client
	Chain     *chain.Client
	ChainInfo ChainInfo
	Wallet    provider.Wallet
	Manager   *auth.Manager
	Widget    *widget.Widget

	ethClient *ethclient.Client
	closeRPC  func()
}

// InitializeLogger installs a production logger as the global one. LOG_LEVEL
// is read here so that config errors can already be logged.
func InitializeLogger() (*zap.Logger, func()) {
	cfg := zap.NewProductionConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			log.Printf("Unknown log level %q, using info\n", level)
		} else {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires storage, the widget API, the chain node, the
// wallet and the selected strategy. Persisted credentials are restored but
// no login is attempted.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	chains, err := LoadChainConfig(cfg.Chain.ChainsFile)
	if err != nil {
		return nil, err
	}
	chainInfo, err := FindChain(chains, cfg.Chain.ChainId)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService, ChainInfo: chainInfo}

	httpClient, err := api.NewHttpClient(cfg.Api.Timeout)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Api = api.NewClient(cfg.Api.BaseURL, httpClient)

	rpcURL := cfg.Chain.RpcURL
	if rpcURL == "" {
		rpcURL = chainInfo.RpcURL
	}
	chainClient, ethClient, err := chain.Dial(ctx, rpcURL, chainInfo.Id)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Chain = chainClient
	services.ethClient = ethClient

	zap.L().Info("Connecting wallet")
	if err := services.connectWallet(ctx); err != nil {
		services.Close()
		return nil, err
	}

	services.Manager = auth.NewManager(services.strategyFactory(cfg))
	if err := services.Manager.Select(ctx, cfg.Auth.Strategy); err != nil {
		services.Close()
		return nil, err
	}

	services.Widget = widget.New(services.Manager, services.Chain, transfer.Options{
		ChainId:            chainInfo.Id,
		QuoteInterval:      cfg.Transfer.QuoteInterval,
		Debounce:           cfg.Transfer.QuoteDebounce,
		StatusPollInterval: cfg.Transfer.StatusPollInterval,
		ExplorerURL:        chainInfo.ExplorerURL,
		ExplorerName:       chainInfo.ExplorerName,
		Activity:           dbService,
	})

	zap.L().Info("Widget services initialized",
		zap.String("chain", chainInfo.Name),
		zap.String("strategy", string(cfg.Auth.Strategy)),
		zap.Bool("authenticated", services.Widget.Authenticated()))

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like listing activity
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) strategyFactory(cfg *models.Config) auth.Factory {
	return func(ctx context.Context, kind models.StrategyKind) (auth.Strategy, error) {
		switch kind {
		case models.StrategyDirectProvider:
			return auth.NewDirectProvider(ctx, cs.Wallet, cs.Api, cs.DbService), nil
		case models.StrategyHostedCustody:
			return nil, fmt.Errorf("hosted custody for app %q needs a hosted SDK bridge, none is available to the CLI", cfg.Auth.AppId)
		default:
			return nil, fmt.Errorf("%w: %s", auth.ErrUnknownStrategy, kind)
		}
	}
}

// connectWallet uses WALLET_PRIVATE_KEY when set, otherwise the JSON-RPC
// wallet endpoint in WALLET_RPC_URL.
func (cs *Services) connectWallet(ctx context.Context) error {
	if key := os.Getenv("WALLET_PRIVATE_KEY"); key != "" {
		wallet, err := provider.NewLocalWalletFromHex(key, cs.ethClient, cs.ChainInfo.Id)
		if err != nil {
			return err
		}
		wallet.Connect()
		cs.Wallet = wallet
		return nil
	}

	if url := os.Getenv("WALLET_RPC_URL"); url != "" {
		wallet, err := provider.DialRPCWallet(ctx, url)
		if err != nil {
			return err
		}
		if err := wallet.Connect(ctx); err != nil {
			wallet.Close()
			return err
		}
		if wallet.ChainID() != cs.ChainInfo.Id {
			wallet.Close()
			return fmt.Errorf("wallet is on chain %d, expected %d", wallet.ChainID(), cs.ChainInfo.Id)
		}
		cs.Wallet = wallet
		cs.closeRPC = wallet.Close
		return nil
	}

	return errors.New("missing wallet configuration: set WALLET_PRIVATE_KEY or WALLET_RPC_URL")
}

func (cs *Services) Close() {
	if cs.Widget != nil {
		cs.Widget.Close()
	} else if cs.Manager != nil {
		cs.Manager.Close()
	}
	if cs.closeRPC != nil {
		cs.closeRPC()
	}
	if cs.ethClient != nil {
		cs.ethClient.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
