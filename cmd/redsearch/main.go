package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/searchkit/redsearch/internal/app"
	"github.com/searchkit/redsearch/internal/redsearch"
	"github.com/searchkit/redsearch/internal/toolhost"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		showVersion bool
		addr        string
		configPath  string
		envFiles    string
		apiKey      string
		apiBase     string
		outDir      string
		rateRPS     float64
		verbose     bool
	)

	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.StringVar(&addr, "addr", "", "Listen address for the HTTP tool host (default :8371)")
	flag.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	flag.StringVar(&envFiles, "env", ".env.local,.env", "Comma-separated dotenv files to load")
	flag.StringVar(&apiKey, "api.key", "", "Upstream API key (default: REDDIT_API_KEY env)")
	flag.StringVar(&apiBase, "api.base", "", "Upstream search endpoint override")
	flag.StringVar(&outDir, "out.dir", "", "Default output directory for file-mode results (default: REDDIT_SEARCH_OUTPUT_DIR env, else home)")
	flag.Float64Var(&rateRPS, "rate.rps", 0, "Upstream requests per second; 0 disables limiting")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if showVersion {
		fmt.Println(versionString())
		return 0
	}

	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		log.Error().Err(err).Msg("load env files")
		return 1
	}

	cfg := app.Config{
		APIKey:     apiKey,
		BaseURL:    apiBase,
		OutputDir:  outDir,
		ListenAddr: addr,
		RateRPS:    rateRPS,
		Verbose:    verbose,
	}
	if configPath != "" {
		fc, err := app.LoadFileConfig(configPath)
		if err != nil {
			log.Error().Err(err).Msg("load config file")
			return 1
		}
		fc.Apply(&cfg)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8371"
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	opts := []redsearch.Option{redsearch.WithLogger(log.Logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, redsearch.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OutputDir != "" {
		opts = append(opts, redsearch.WithOutputDir(cfg.OutputDir))
	}
	if cfg.RateRPS > 0 {
		opts = append(opts, redsearch.WithRateLimit(cfg.RateRPS))
	}

	client, err := redsearch.NewClient(cfg.APIKey, opts...)
	if err != nil {
		log.Error().Err(err).Msg("construct search client")
		return 1
	}
	defer client.Close()

	registry, err := toolhost.NewBuiltinRegistry(toolhost.Deps{Searcher: client})
	if err != nil {
		log.Error().Err(err).Msg("register tools")
		return 1
	}

	mux := http.NewServeMux()
	toolhost.NewServer(registry, log.Logger).RegisterRoutes(mux)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("version", app.BuildVersion).Msg("tool host listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	log.Info().Msg("shut down")
	return 0
}

func versionString() string {
	return fmt.Sprintf("redsearch %s (commit %s, built %s)", app.BuildVersion, app.BuildCommit, app.BuildDate)
}
