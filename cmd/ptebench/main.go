// Command ptebench builds a synthetic transaction batch, runs it through the
// Parallel Executor with the lightweight ledger executor, and prints the
// resulting BatchOutcome stats. It is a benchmarking/demo harness, not a
// node — it never opens a socket and holds no state between runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"
	"os"

	"github.com/ethereum/go-ethereum/common"
	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/lightchain-engine/pte/internal/config"
	"github.com/lightchain-engine/pte/pkg/evm"
	"github.com/lightchain-engine/pte/pkg/execution"
	"github.com/lightchain-engine/pte/pkg/snapshot"
)

func main() {
	txCount := flag.Int("txs", 5000, "number of synthetic transfer transactions")
	accountCount := flag.Int("accounts", 2000, "number of distinct accounts to draw from")
	hotAccounts := flag.Int("hot-accounts", 20, "number of accounts disproportionately reused as senders, to induce conflicts")
	hotShare := flag.Float64("hot-share", 0.3, "fraction of transactions whose sender is drawn from the hot-account set")
	configPath := flag.String("config", "", "path to an engine config YAML file (optional)")
	seed := flag.Int64("seed", 1, "random seed for the synthetic workload")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn, error, crit")
	flag.Parse()

	setLogLevel(*logLevel)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			gethlog.Crit("failed to load config", "path", *configPath, "err", err)
		}
		cfg = loaded
	}

	rng := rand.New(rand.NewSource(*seed))
	base, batch := synthesizeWorkload(rng, *txCount, *accountCount, *hotAccounts, *hotShare)

	var ledger evm.LedgerExecutor
	exec := execution.New(cfg.ToExecutionConfig())

	outcome, err := exec.ExecuteBatch(context.Background(), batch, base, ledger.Run)
	if err != nil {
		gethlog.Crit("batch execution failed", "err", err)
	}

	printReport(outcome)
}

func setLogLevel(level string) {
	var lvl slog.Level
	switch level {
	case "trace":
		lvl = gethlog.LevelTrace
	case "debug":
		lvl = gethlog.LevelDebug
	case "warn":
		lvl = gethlog.LevelWarn
	case "error":
		lvl = gethlog.LevelError
	case "crit":
		lvl = gethlog.LevelCrit
	default:
		lvl = gethlog.LevelInfo
	}
	gethlog.SetDefault(gethlog.NewLogger(gethlog.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}

// synthesizeWorkload funds accountCount accounts with a generous balance and
// builds txCount Transfer transactions between them. hotAccounts of the
// senders are overrepresented, proportionally to hotShare, so the resulting
// batch contains the mix of independent and conflicting transactions a real
// block would.
func synthesizeWorkload(rng *rand.Rand, txCount, accountCount, hotAccounts int, hotShare float64) (*snapshot.Manager, []execution.Transaction) {
	if hotAccounts > accountCount {
		hotAccounts = accountCount
	}

	base := snapshot.NewManager()
	accounts := make([]common.Address, accountCount)
	for i := range accounts {
		accounts[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
		evm.SeedAccount(base, accounts[i], uint256.NewInt(1_000_000), 0)
	}

	nonces := make([]uint64, accountCount)
	batch := make([]execution.Transaction, txCount)
	for i := 0; i < txCount; i++ {
		var from int
		if hotAccounts > 0 && rng.Float64() < hotShare {
			from = rng.Intn(hotAccounts)
		} else {
			from = rng.Intn(accountCount)
		}
		to := rng.Intn(accountCount)

		batch[i] = evm.Transfer{
			From:     accounts[from],
			To:       accounts[to],
			Value:    uint256.NewInt(1),
			Nonce:    nonces[from],
			GasLimit: 21000,
		}
		nonces[from]++
	}

	return base, batch
}

func printReport(outcome execution.BatchOutcome) {
	s := outcome.Stats
	fmt.Printf("run:               %s\n", s.RunID)
	fmt.Printf("transactions:      %d\n", s.TotalTxs)
	fmt.Printf("waves:             %d\n", s.WaveCount)
	fmt.Printf("fallbacks:         %d\n", s.FallbackCount)
	fmt.Printf("late conflicts:    %d\n", s.ConflictCount)
	fmt.Printf("estimated speedup: %.2fx\n", s.EstimatedSpeedup)

	ok, rejected := 0, 0
	for _, r := range outcome.Results {
		if r.Success {
			ok++
		} else {
			rejected++
		}
	}
	fmt.Printf("succeeded:         %d\n", ok)
	fmt.Printf("rejected:          %d\n", rejected)
}
