package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radixdlt/radixkernel/internal/kernel"
	"github.com/radixdlt/radixkernel/internal/store"
	"github.com/radixdlt/radixkernel/internal/store/sqlitestore"
	"github.com/radixdlt/radixkernel/internal/track"
	"github.com/radixdlt/radixkernel/internal/txprocessor"
	"github.com/radixdlt/radixkernel/internal/wasm"
)

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a kernel.yaml config file")
	dbPath := fs.String("db", "", "sqlite database file to run against; empty uses an in-memory store")
	signerJWT := fs.String("signer-jwt", "", "optional signed JWT naming the transaction's signer resource addresses")
	jwtSecret := fs.String("jwt-secret", "", "HMAC secret used to verify --signer-jwt")
	nonDeterministic := fs.Bool("non-deterministic", false, "log a random UUID run tag; address derivation still uses the fixed transaction hash")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := setupLogger(&cfg.Logging)

	backing, closeFn := openStore(*dbPath, logger)
	defer closeFn()

	signers, err := signerResourcesFromJWT(*signerJWT, *jwtSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse signer JWT")
	}

	var txHash [32]byte
	copy(txHash[:], []byte("example-transaction-hash-------"))
	if *nonDeterministic {
		runId := uuid.New()
		logger.Debug().Str("run_id", runId.String()).Msg("non-deterministic run, transaction hash left unmodified for address derivation")
	}

	tr := track.New(backing)
	engine := wasm.NewStubEngine(nil)
	k := kernel.New(txHash, cfg.Kernel.MaxCallDepth, tr, engine, cfg.Kernel.CostUnitLimit, signers)
	proc := txprocessor.New(k)

	results, err := proc.Run(nil)
	if err != nil {
		logger.Error().Err(err).Msg("transaction execution failed")
		if rbErr := tr.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("rollback also failed")
		}
		os.Exit(1)
	}

	if err := tr.Commit(); err != nil {
		logger.Fatal().Err(err).Msg("commit failed")
	}
	for _, entry := range k.Logs {
		drainLogEntry(logger, entry)
	}
	fmt.Fprintf(os.Stdout, "executed %d instructions, %d cost units consumed\n", len(results), k.CostUnitsConsumed)
}

func openStore(dbPath string, logger zerolog.Logger) (track.SubstateStore, func()) {
	if dbPath == "" {
		return store.NewMemoryStore(), func() {}
	}
	s, err := sqlitestore.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open sqlite store")
	}
	return s, func() { s.Close() }
}

func drainLogEntry(logger zerolog.Logger, entry kernel.LogEntry) {
	event := logger.Info()
	switch entry.Level {
	case kernel.LogError:
		event = logger.Error()
	case kernel.LogWarn:
		event = logger.Warn()
	case kernel.LogDebug:
		event = logger.Debug()
	case kernel.LogTrace:
		event = logger.Trace()
	}
	event.Msg(entry.Message)
}
