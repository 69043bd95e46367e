package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vcazador/dejungl-meme/config"
	"github.com/vcazador/dejungl-meme/native/amm"
	"github.com/vcazador/dejungl-meme/native/common"
	"github.com/vcazador/dejungl-meme/native/curve"
	"github.com/vcazador/dejungl-meme/native/launch"
	"github.com/vcazador/dejungl-meme/native/spending"
	"github.com/vcazador/dejungl-meme/observability"
	"github.com/vcazador/dejungl-meme/observability/logging"
	"github.com/vcazador/dejungl-meme/rpc"
	"github.com/vcazador/dejungl-meme/state"
	"github.com/vcazador/dejungl-meme/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the launchpad config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "dejungld: %v\n", err)
		os.Exit(1)
	}
}

func requireAddress(name, raw string) ([20]byte, error) {
	if raw == "" {
		return [20]byte{}, fmt.Errorf("config: %s must be set", name)
	}
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: %s: %w", name, err)
	}
	return addr, nil
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("dejungld", cfg.Environment)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	manager := state.NewManager(db)

	operator, err := requireAddress("Operator", cfg.Operator)
	if err != nil {
		return err
	}
	feeRecipient, err := requireAddress("FeeRecipient", cfg.FeeRecipient)
	if err != nil {
		return err
	}
	escrowVault, err := requireAddress("EscrowVault", cfg.EscrowVault)
	if err != nil {
		return err
	}
	factoryAddr, err := requireAddress("FactoryAddress", cfg.FactoryAddress)
	if err != nil {
		return err
	}
	maxSupply, err := config.ParseAmount(cfg.MaxSupply)
	if err != nil {
		return err
	}
	threshold, err := config.ParseAmount(cfg.PoolSupplyThreshold)
	if err != nil {
		return err
	}
	escrowAllocation, err := config.ParseAmount(cfg.EscrowAllocation)
	if err != nil {
		return err
	}
	virtualReserve, err := config.ParseAmount(cfg.VirtualReserveETH)
	if err != nil {
		return err
	}
	creationFee, err := config.ParseAmount(cfg.CreationFee)
	if err != nil {
		return err
	}

	emitter := observability.NewEmitter(logger)

	pairFactory := amm.NewFactory()
	pairFactory.SetState(manager)
	pairFactory.SetTokenLedger(manager)

	coordinator := curve.NewCoordinator()
	coordinator.SetState(manager)
	coordinator.SetTokenLedger(manager)
	coordinator.SetEmitter(emitter)
	coordinator.SetRouter(pairFactory)
	coordinator.SetEscrowVault(escrowVault)

	spendingLedger := spending.NewLedger()
	spendingLedger.SetState(manager)
	spendingLedger.SetEmitter(emitter)

	curveEngine := curve.NewEngine()
	curveEngine.SetState(manager)
	curveEngine.SetTokenLedger(manager)
	curveEngine.SetSpending(spendingLedger)
	curveEngine.SetEmitter(emitter)
	curveEngine.SetCoordinator(coordinator)
	curveEngine.SetPauses(manager)
	curveEngine.SetPokeGate(common.IntervalGate{MinSeconds: cfg.PokeMinInterval})
	curveEngine.SetFeeRecipient(feeRecipient)
	if err := curveEngine.SetParams(curve.Params{
		MaxSupply:           maxSupply,
		PoolSupplyThreshold: threshold,
		EscrowAllocation:    escrowAllocation,
		VirtualReserveETH:   virtualReserve,
		FeeRate:             cfg.FeeRate,
	}); err != nil {
		return fmt.Errorf("curve params: %w", err)
	}

	launchEngine := launch.NewEngine()
	launchEngine.SetState(manager)
	launchEngine.SetCurveEngine(curveEngine)
	launchEngine.SetTokenMinter(manager)
	launchEngine.SetSpendingRegistrar(spendingLedger)
	launchEngine.SetEmitter(emitter)
	launchEngine.SetPauses(manager)
	launchEngine.SetOperator(operator)
	launchEngine.SetFeeRecipient(feeRecipient)
	launchEngine.SetFactoryAddress(factoryAddr)
	launchEngine.SetCreationFee(creationFee)

	server := rpc.NewServer(rpc.Options{
		Curve:         curveEngine,
		Launcher:      launchEngine,
		Spending:      spendingLedger,
		Pauses:        manager,
		Operator:      operator,
		Logger:        logger,
		RatePerMinute: cfg.RateLimitPerMinute,
		RateBurst:     cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
