package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/service"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Unified multi-engine inference daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildServeCmd(), buildTasksCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var (
		addr          string
		configPath    string
		cacheCapacity int
		ollamaURL     string
		transformURL  string
		llamaDir      string
		llamaCtx      int
		llamaThreads  int
		logLevel      string
		maxBodyBytes  int64
		corsEnabled   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP inference server",
		Example: "  inferd serve --addr :8080 --ollama-url http://localhost:11434\n" +
			"  inferd serve --config /etc/inferd/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			// Flags set explicitly win over the config file.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("cache-capacity") || cfg.CacheCapacity == 0 {
				cfg.CacheCapacity = cacheCapacity
			}
			if cmd.Flags().Changed("ollama-url") || cfg.OllamaURL == "" {
				cfg.OllamaURL = ollamaURL
			}
			if cmd.Flags().Changed("transformers-url") || cfg.TransformersURL == "" {
				cfg.TransformersURL = transformURL
			}
			if cmd.Flags().Changed("llama-models-dir") {
				cfg.LlamaModelsDir = llamaDir
			}
			if cmd.Flags().Changed("llama-ctx") || cfg.LlamaCtx == 0 {
				cfg.LlamaCtx = llamaCtx
			}
			if cmd.Flags().Changed("llama-threads") || cfg.LlamaThreads == 0 {
				cfg.LlamaThreads = llamaThreads
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("max-body-bytes") {
				cfg.MaxBodyBytes = maxBodyBytes
			}
			if cmd.Flags().Changed("cors") {
				cfg.CORSEnabled = corsEnabled
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("INFERD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("INFERD_CONFIG"), "Path to a yaml/json/toml config file")
	cmd.Flags().IntVar(&cacheCapacity, "cache-capacity", 8, "Maximum number of models kept loaded")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", envOr("INFERD_OLLAMA_URL", "http://localhost:11434"), "Base URL of the ollama server")
	cmd.Flags().StringVar(&transformURL, "transformers-url", envOr("INFERD_TRANSFORMERS_URL", "http://localhost:8500"), "Base URL of the transformers sidecar")
	cmd.Flags().StringVar(&llamaDir, "llama-models-dir", os.Getenv("INFERD_LLAMA_MODELS_DIR"), "Directory with *.gguf models (requires a llama-enabled build)")
	cmd.Flags().IntVar(&llamaCtx, "llama-ctx", 2048, "Context window for in-process llama models")
	cmd.Flags().IntVar(&llamaThreads, "llama-threads", 4, "Threads for in-process llama inference")
	cmd.Flags().StringVar(&logLevel, "log-level", envOr("INFERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	cmd.Flags().Int64Var(&maxBodyBytes, "max-body-bytes", 1<<20, "Maximum JSON request body size")
	cmd.Flags().BoolVar(&corsEnabled, "cors", false, "Enable permissive CORS for browser clients")
	return cmd
}

func runServe(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	adapters := []engine.Adapter{
		engine.NewOllamaAdapter(cfg.OllamaURL, log),
		engine.NewTransformersAdapter(cfg.TransformersURL, log),
	}
	if cfg.LlamaModelsDir != "" {
		adapters = append(adapters, engine.NewLlamaAdapter(cfg.LlamaModelsDir, cfg.LlamaCtx, cfg.LlamaThreads, log))
	}

	svc := service.Default(service.Config{
		Adapters:      adapters,
		CacheCapacity: cfg.CacheCapacity,
		Logger:        log,
	})

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true,
			[]string{"*"},
			[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
			[]string{"Content-Type", "X-Log-Level"},
		)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info().Msg("shutting down")
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	svc.ClearCache()
	return nil
}

func buildTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List supported tasks and their engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapters := []engine.Adapter{
				engine.NewOllamaAdapter("http://localhost:11434", zerolog.Nop()),
				engine.NewTransformersAdapter("http://localhost:8500", zerolog.Nop()),
			}
			svc := service.New(service.Config{Adapters: adapters, Logger: zerolog.Nop()})
			catalog := svc.Catalog()
			names := make([]string, 0, len(catalog))
			for name := range catalog {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				info := catalog[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s engines=%s\t%s\n",
					name, strings.Join(info.Engines, ","), info.Description)
			}
			return nil
		},
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
