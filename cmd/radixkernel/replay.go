package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/kernel"
	"github.com/radixdlt/radixkernel/internal/sbor"
	"github.com/radixdlt/radixkernel/internal/store"
	"github.com/radixdlt/radixkernel/internal/track"
	"github.com/radixdlt/radixkernel/internal/txprocessor"
	"github.com/radixdlt/radixkernel/internal/wasm"
)

// replayCommand re-executes the same transaction against N fresh
// stores and diffs the resulting write-sets, exercising the kernel's
// determinism guarantee: identical inputs must produce an identical
// committed substate set regardless of how many times the transaction
// is replayed (testable property 3).
func replayCommand(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a kernel.yaml config file")
	runs := fs.Int("runs", 3, "number of independent replays to compare")
	signerJWT := fs.String("signer-jwt", "", "optional signed JWT naming the transaction's signer resource addresses")
	jwtSecret := fs.String("jwt-secret", "", "HMAC secret used to verify --signer-jwt")
	fs.Parse(args)

	if *runs < 2 {
		fmt.Fprintln(os.Stderr, "replay: --runs must be at least 2 to diff anything")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := setupLogger(&cfg.Logging)

	signers, err := signerResourcesFromJWT(*signerJWT, *jwtSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse signer JWT")
	}

	var txHash [32]byte
	copy(txHash[:], []byte("example-transaction-hash-------"))

	var first map[addr.SubstateId]sbor.Value
	for run := 0; run < *runs; run++ {
		backing := store.NewMemoryStore()
		tr := track.New(backing)
		engine := wasm.NewStubEngine(nil)
		k := kernel.New(txHash, cfg.Kernel.MaxCallDepth, tr, engine, cfg.Kernel.CostUnitLimit, signers)
		proc := txprocessor.New(k)

		if _, err := proc.Run(nil); err != nil {
			logger.Fatal().Err(err).Int("run", run).Msg("transaction execution failed during replay")
		}
		if err := tr.Commit(); err != nil {
			logger.Fatal().Err(err).Int("run", run).Msg("commit failed during replay")
		}

		snapshot := backing.Snapshot()
		if run == 0 {
			first = snapshot
			continue
		}
		if !reflect.DeepEqual(first, snapshot) {
			logger.Error().Int("run", run).Msg("replay diverged from the first run's write-set")
			fmt.Fprintf(os.Stderr, "replay: nondeterminism detected between run 0 and run %d\n", run)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stdout, "replay: %d runs produced identical write-sets (%d substates)\n", *runs, len(first))
}
