package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cryptoscan/config"
	"cryptoscan/internal/analyzer"
	"cryptoscan/internal/auth"
	"cryptoscan/internal/indicators"
	"cryptoscan/internal/logger"
	"cryptoscan/internal/metrics"
	"cryptoscan/internal/output/resulthttp"
	"cryptoscan/internal/output/resultjson"
	"cryptoscan/internal/scan"
	"cryptoscan/internal/source/graph"
	"cryptoscan/internal/source/local"
	"cryptoscan/internal/store/resultstore"
	"cryptoscan/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("cryptoscan.yml"); err == nil {
		return "cryptoscan.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "cryptoscan.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "cryptoscan.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.CryptoScan.Scan.Depth == "" {
		cfg.CryptoScan.Scan.Depth = scan.DepthStandard
	}
	if cfg.CryptoScan.Scan.MaxItems <= 0 {
		cfg.CryptoScan.Scan.MaxItems = 100
	}

	if cfg.CryptoScan.Auth.Timeout <= 0 {
		cfg.CryptoScan.Auth.Timeout = 10 * time.Second
	}

	if cfg.CryptoScan.Output.Mode == "" {
		cfg.CryptoScan.Output.Mode = "file"
	}
	if cfg.CryptoScan.Output.File.Path == "" {
		cfg.CryptoScan.Output.File.Path = "output/scan_results.jsonl"
	}

	if cfg.CryptoScan.Store.Redis.Addr == "" {
		cfg.CryptoScan.Store.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.CryptoScan.Metrics.Addr == "" {
		cfg.CryptoScan.Metrics.Addr = ":9104"
	}

	if cfg.CryptoScan.Logging.Level == "" {
		cfg.CryptoScan.Logging.Level = "info"
	}
}

// sourceEnabled treats an absent flag as enabled.
func sourceEnabled(v *bool) bool {
	return v == nil || *v
}

func buildCatalog(cfg *config.Config) *indicators.Catalog {
	catalog := indicators.Default()
	if !cfg.CryptoScan.Rules.Enabled {
		return catalog
	}
	if strings.TrimSpace(cfg.CryptoScan.Rules.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; built-in indicators only")
		return catalog
	}

	extra, stats, err := indicators.LoadSigma(cfg.CryptoScan.Rules.Path)
	if err != nil {
		logger.Errorf("Failed to load Sigma rules from %s: %v", cfg.CryptoScan.Rules.Path, err)
		log.Fatalf("Failed to load Sigma rules: %v", err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; built-in indicators only")
	}
	combined := make([]indicators.Rule, 0, catalog.Len()+len(extra))
	combined = append(combined, catalog.Rules()...)
	combined = append(combined, extra...)
	return indicators.New(combined)
}

func runScan(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.CryptoScan.Logging.Enabled, cfg.CryptoScan.Logging.Level, cfg.CryptoScan.Logging.File, cfg.CryptoScan.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("CryptoScan starting")
	logger.Infof("Config loaded from: %s", configPath)

	if cfg.CryptoScan.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.CryptoScan.Metrics.Addr); err != nil {
				logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
		logger.Infof("Metrics endpoint listening on %s", cfg.CryptoScan.Metrics.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("Shutting down")
		cancel()
	}()

	authResult := auth.Authenticate(ctx, auth.Config{
		TokenURL:     cfg.CryptoScan.Auth.TokenURL,
		ClientID:     cfg.CryptoScan.Auth.ClientID,
		ClientSecret: cfg.CryptoScan.Auth.ClientSecret,
		Tenant:       cfg.CryptoScan.Tenant,
		StaticToken:  cfg.CryptoScan.Auth.StaticToken,
		Timeout:      cfg.CryptoScan.Auth.Timeout,
	})
	if authResult.OK {
		logger.Infof("Authentication succeeded for tenant %s", cfg.CryptoScan.Tenant)
	} else {
		logger.Warnf("Authentication failed: %s", authResult.Err)
	}

	catalog := buildCatalog(cfg)
	logger.Infof("Indicator catalog ready: %d rules", catalog.Len())

	runner := scan.NewRunner(catalog, authResult)

	if cfg.CryptoScan.Sources.Graph.BaseURL != "" {
		client, err := graph.NewClient(graph.Config{
			BaseURL: cfg.CryptoScan.Sources.Graph.BaseURL,
			Token:   authResult.Token,
			Timeout: cfg.CryptoScan.Sources.Graph.Timeout,
			Headers: cfg.CryptoScan.Sources.Graph.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create content API client: %v", err)
			log.Fatalf("Failed to create content API client: %v", err)
		}
		runner.Register(scan.SourceEmail, graph.NewEmail(client))
		runner.Register(scan.SourceSharePoint, graph.NewSharePoint(client))
		runner.Register(scan.SourceOneDrive, graph.NewOneDrive(client))
		runner.Register(scan.SourceTeams, graph.NewTeams(client))
		runner.Register(scan.SourceCloud, graph.NewCloudStorage(client))
	} else {
		logger.Warnf("No content API base URL configured; remote sources disabled")
	}
	runner.Register(scan.SourceLocal, local.New(cfg.CryptoScan.Sources.LocalPaths...))

	var writer scan.ResultWriter
	switch cfg.CryptoScan.Output.Mode {
	case "file":
		w, err := resultjson.NewWriter(cfg.CryptoScan.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create result file writer: %v", err)
			log.Fatalf("Failed to create result file writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: file (%s)", cfg.CryptoScan.Output.File.Path)
	case "http":
		w, err := resulthttp.NewWriter(resulthttp.Config{
			URL:     cfg.CryptoScan.Output.HTTP.URL,
			Timeout: cfg.CryptoScan.Output.HTTP.Timeout,
			Headers: cfg.CryptoScan.Output.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create result HTTP writer: %v", err)
			log.Fatalf("Failed to create result HTTP writer: %v", err)
		}
		writer = w
		logger.Infof("Output mode: http (%s)", cfg.CryptoScan.Output.HTTP.URL)
	default:
		log.Fatalf("Unknown output mode: %s", cfg.CryptoScan.Output.Mode)
	}
	defer writer.Close()

	var store *resultstore.RedisStore
	if cfg.CryptoScan.Store.Enabled {
		store, err = resultstore.NewRedisStore(resultstore.RedisConfig{
			Addr:      cfg.CryptoScan.Store.Redis.Addr,
			Password:  cfg.CryptoScan.Store.Redis.Password,
			DB:        cfg.CryptoScan.Store.Redis.DB,
			KeyPrefix: cfg.CryptoScan.Store.Redis.KeyPrefix,
			TTL:       cfg.CryptoScan.Store.Redis.TTL,
			RecentMax: cfg.CryptoScan.Store.Redis.RecentMax,
		})
		if err != nil {
			logger.Errorf("Failed to create result store: %v", err)
			log.Fatalf("Failed to create result store: %v", err)
		}
		defer store.Close()
		logger.Infof("Result store: redis (%s)", cfg.CryptoScan.Store.Redis.Addr)
	}

	result := runner.Run(ctx, scan.Config{
		Tenant:            cfg.CryptoScan.Tenant,
		IncludeEmail:      sourceEnabled(cfg.CryptoScan.Sources.Email),
		IncludeSharePoint: sourceEnabled(cfg.CryptoScan.Sources.SharePoint),
		IncludeOneDrive:   sourceEnabled(cfg.CryptoScan.Sources.OneDrive),
		IncludeTeams:      sourceEnabled(cfg.CryptoScan.Sources.Teams),
		IncludeLocal:      sourceEnabled(cfg.CryptoScan.Sources.Local),
		IncludeCloud:      sourceEnabled(cfg.CryptoScan.Sources.Cloud),
		MaxItems:          cfg.CryptoScan.Scan.MaxItems,
		Depth:             cfg.CryptoScan.Scan.Depth,
	})

	if err := writer.WriteResult(result); err != nil {
		logger.Errorf("Failed to write scan result: %v", err)
	}
	if store != nil {
		if err := store.Save(context.Background(), result); err != nil {
			logger.Errorf("Failed to persist scan result: %v", err)
		}
	}

	logger.Infof("Scan %s finished: status=%s detections=%d high=%d medium=%d low=%d",
		result.ScanID,
		result.Status,
		result.Summary.Total,
		result.Summary.High,
		result.Summary.Medium,
		result.Summary.Low,
	)

	stats := logger.GetStats()
	logger.Infof("Log summary: debug=%d info=%d warn=%d error=%d", stats.Debug, stats.Info, stats.Warn, stats.Error)
	logger.Infof("CryptoScan stopped")
}

// runCheck analyzes a single file or stdin and prints the matches.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	input := fs.String("input", "-", "File to analyze, or - for stdin")
	deep := fs.Bool("deep", false, "Also analyze decoded base64 payloads")
	rulesPath := fs.String("rules", "", "Optional Sigma rules directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		data []byte
		err  error
	)
	if *input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*input)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input: %v\n", err)
		return 1
	}

	catalog := indicators.Default()
	if strings.TrimSpace(*rulesPath) != "" {
		extra, _, err := indicators.LoadSigma(*rulesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load Sigma rules: %v\n", err)
			return 1
		}
		combined := make([]indicators.Rule, 0, catalog.Len()+len(extra))
		combined = append(combined, catalog.Rules()...)
		combined = append(combined, extra...)
		catalog = indicators.New(combined)
	}

	var (
		score   int
		matches []models.Match
	)
	if *deep {
		score, matches = analyzer.AnalyzeDecoded(catalog, string(data))
	} else {
		score, matches = analyzer.Analyze(catalog, string(data))
	}

	out := struct {
		Score    int            `json:"score"`
		Severity string         `json:"severity,omitempty"`
		Matches  []models.Match `json:"matches"`
	}{Score: score, Matches: matches}
	if score > 0 {
		out.Severity = models.SeverityForScore(score)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		return 1
	}
	if score > 0 {
		return 3
	}
	return 0
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scan":
			runScan(os.Args[2:])
			return
		case "check":
			os.Exit(runCheck(os.Args[2:]))
		default:
			// Backward-compatible mode: first arg is config path.
			runScan(os.Args[1:])
			return
		}
	}

	runScan(nil)
}
