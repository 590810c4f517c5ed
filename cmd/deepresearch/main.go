package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/deepresearch/config"
	"github.com/mohammad-safakhou/deepresearch/internal/gateway"
	"github.com/mohammad-safakhou/deepresearch/internal/research"
	"github.com/mohammad-safakhou/deepresearch/internal/server"
	"github.com/mohammad-safakhou/deepresearch/internal/telemetry"
	openai_provider "github.com/mohammad-safakhou/deepresearch/provider/openai"
	"github.com/mohammad-safakhou/deepresearch/tools/web_fetch"
	"github.com/mohammad-safakhou/deepresearch/tools/web_search"
)

func main() {
	var root = &cobra.Command{Use: "deepresearch"}

	var cfgPath string
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the research HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr == "" {
				serveAddr = os.Getenv("DEEPRESEARCH_HTTP_ADDR")
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}

			var metrics *telemetry.Metrics
			if cfg.Telemetry.Enabled {
				metrics = telemetry.New(nil)
			}

			provider, err := openai_provider.NewClient(cfg.LLM)
			if err != nil {
				return err
			}
			gw := gateway.New(provider, cfg.LLM, log.New(log.Writer(), "[LLM] ", log.LstdFlags), metrics)

			searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey)
			if err != nil {
				return err
			}
			fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Fetcher), cfg.Fetch.Timeout, cfg.Fetch.MaxChars)
			if err != nil {
				return err
			}

			logger := log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
			pipeline := research.NewPipeline(gw, searcher, fetcher, cfg, logger, metrics)
			registry, err := research.NewRegistry(pipeline, cfg.Research, logger)
			if err != nil {
				return err
			}
			registry.Start(context.Background())

			return server.Run(cfg, registry)
		},
	}
	serve.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	root.AddCommand(serve)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
