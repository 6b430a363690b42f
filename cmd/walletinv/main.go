package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/rawblock/wallet-forensics/internal/ai"
	"github.com/rawblock/wallet-forensics/internal/api"
	"github.com/rawblock/wallet-forensics/internal/apperr"
	"github.com/rawblock/wallet-forensics/internal/catalog"
	"github.com/rawblock/wallet-forensics/internal/chain"
	"github.com/rawblock/wallet-forensics/internal/orchestrate"
	"github.com/rawblock/wallet-forensics/internal/store"
	"github.com/rawblock/wallet-forensics/internal/taint"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[walletinv] no .env file found, relying on process environment")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		os.Exit(runAnalyze(os.Args[2:]))
	case "serve":
		runServe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: walletinv analyze <address> [--profile P] [--depth N] [--include-ai] [--max-transactions N]")
	fmt.Fprintln(os.Stderr, "       walletinv serve")
}

// runAnalyze runs one investigation synchronously and prints the report as
// JSON to stdout. Exit codes: 0 success, 1 analysis failed,
// 2 invalid arguments, 3 external data unavailable.
func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	profile := fs.String("profile", "", "risk profile (default: balanced)")
	depth := fs.Int("depth", 0, "BFS expansion depth (default: 2)")
	includeAI := fs.Bool("include-ai", false, "request AI-generated narrative insight")
	maxTx := fs.Int("max-transactions", 0, "transaction fetch budget (default: 500)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		usage()
		return 2
	}
	address := fs.Arg(0)
	if address == "" {
		return 2
	}

	orch, cleanup, err := buildOrchestrator()
	if err != nil {
		log.Printf("[walletinv] failed to initialize: %v", err)
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	opts := orchestrate.Options{
		Profile:         *profile,
		Depth:           *depth,
		MaxTransactions: *maxTx,
		IncludeAI:       *includeAI,
	}

	report, err := orch.Investigate(ctx, address, address, opts)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			log.Printf("[walletinv] investigation failed: %v", appErr)
			switch appErr.Kind {
			case apperr.InvalidInput:
				return 2
			case apperr.DataUnavailable:
				return 3
			default:
				return 1
			}
		}
		log.Printf("[walletinv] investigation failed: %v", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Printf("[walletinv] failed to encode report: %v", err)
		return 1
	}
	return 0
}

func runServe(args []string) {
	ctx := context.Background()

	orch, cleanup, err := buildOrchestrator()
	if err != nil {
		log.Fatalf("[walletinv] failed to initialize: %v", err)
	}
	defer cleanup()

	var dbStore *store.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbStore, err = store.Connect(ctx, dbURL)
		if err != nil {
			log.Printf("[walletinv] warning: failed to connect to PostgreSQL, continuing without persistence: %v", err)
			dbStore = nil
		} else {
			defer dbStore.Close()
			if err := dbStore.InitSchema(ctx); err != nil {
				log.Printf("[walletinv] warning: schema init failed: %v", err)
			}
		}
	} else {
		log.Println("[walletinv] DATABASE_URL not set, running without persistence")
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	handler := api.NewAPIHandler(orch, dbStore, wsHub)

	var limiter *api.RateLimiter
	ratePerMin := envInt("RATE_LIMIT_PER_MIN", 60)
	burst := envInt("RATE_LIMIT_BURST", 20)
	limiter = api.NewRateLimiter(ratePerMin, burst)

	r := api.SetupRouter(handler, limiter)

	port := getEnvOrDefault("PORT", "8088")
	log.Printf("[walletinv] serving on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("[walletinv] server exited: %v", err)
	}
}

// buildOrchestrator wires a chain client, the integration catalog, the
// taint cache, and an optional AI adapter into one Orchestrator shared by
// both subcommands.
func buildOrchestrator() (*orchestrate.Orchestrator, func(), error) {
	rpcEndpoint := requireEnv("CHAIN_RPC_ENDPOINT")
	chainClient := chain.NewRPCClient(chain.RPCConfig{
		Endpoint: rpcEndpoint,
		Timeout:  30 * time.Second,
	})

	catalogPath := getEnvOrDefault("CATALOG_PATH", filepath.Join(".", "data", "catalog.json"))
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create catalog dir: %w", err)
	}
	cat, err := catalog.Load(catalogPath, 7*24*time.Hour)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	cacheDir := getEnvOrDefault("TAINT_CACHE_DIR", filepath.Join(".", "data", "taint-cache"))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create taint cache dir: %w", err)
	}
	cache := taint.NewCache(taint.DefaultTTL, 1000, cacheDir)

	var aiAdapter ai.Adapter = ai.NullAdapter{}
	if endpoint := os.Getenv("AI_ENDPOINT"); endpoint != "" {
		aiAdapter = ai.NewHTTPAdapter(endpoint, os.Getenv("AI_API_KEY"))
	}

	orch := orchestrate.New(chainClient, cat, cache, aiAdapter)
	cleanup := func() {}
	return orch, cleanup, nil
}

func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("[walletinv] required environment variable %s is not set", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}
