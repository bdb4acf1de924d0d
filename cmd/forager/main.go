// -----------------------------------------------------------------------
// Forager - multi-page site crawler and entity extractor
// -----------------------------------------------------------------------

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/interfaces"
	"github.com/ternarybob/forager/internal/services/aggregator"
	"github.com/ternarybob/forager/internal/services/batch"
	"github.com/ternarybob/forager/internal/services/classifier"
	"github.com/ternarybob/forager/internal/services/events"
	"github.com/ternarybob/forager/internal/services/extractor"
	"github.com/ternarybob/forager/internal/services/fetcher"
	badgerstore "github.com/ternarybob/forager/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	schemaPath   = flag.String("schema", "", "Field schema file (yaml/toml/json, defaults to the built-in restaurant schema)")
	sitesFile    = flag.String("sites", "", "File with one site URL per line (in addition to positional URLs)")
	outputPath   = flag.String("output", "", "Write the batch result JSON to this file instead of stdout")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Forager version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("forager.toml"); err == nil {
			configFiles = append(configFiles, "forager.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.InstallCrashHandler("")
	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	sites, err := collectSites(flag.Args(), *sitesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read site list")
		os.Exit(1)
	}
	if len(sites) == 0 {
		fmt.Fprintln(os.Stderr, "usage: forager [flags] <site-url> [<site-url>...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	schemaFile := *schemaPath
	if schemaFile == "" {
		schemaFile = config.Schema.Path
	}
	schema, err := common.LoadSchema(schemaFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", schemaFile).Msg("Failed to load field schema")
		os.Exit(1)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Int("sites", len(sites)).
		Str("domain", schema.Domain).
		Msg("Forager configuration loaded")

	// Graceful shutdown: first signal stops launching new sites and lets
	// in-flight pages finish, second signal kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := events.NewService(logger)
	defer eventBus.Close()

	stream, err := events.NewProgressStream(eventBus, config.Batch.ProgressBuffer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe progress stream")
		os.Exit(1)
	}
	streamDone := make(chan struct{})
	common.SafeGo(logger, "progress-reporter", func() {
		defer close(streamDone)
		for event := range stream.Events() {
			if event.PageURL != "" && event.Status != "fetching" {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s %s (%s)\n",
					event.PagesCompleted, event.PagesTotal, event.Status, event.PageURL, event.PageType)
			}
		}
	})

	var store interfaces.ResultStore
	if config.Storage.Enabled {
		store, err = badgerstore.NewStore(logger, &config.Storage)
		if err != nil {
			logger.Fatal().Err(err).Str("path", config.Storage.Path).Msg("Failed to open result store")
			os.Exit(1)
		}
		defer store.Close()
	}

	fetchSvc := fetcher.NewService(config.Crawler, logger)
	classifySvc, err := classifier.NewService(config.Crawler, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build page classifier")
		os.Exit(1)
	}
	extractSvc := extractor.NewEngine(logger)
	aggregateSvc := aggregator.NewService(logger)

	manager := batch.NewManager(fetchSvc, classifySvc, extractSvc, aggregateSvc, eventBus, store, config, logger)

	result, err := manager.Run(ctx, sites, schema)
	if err != nil {
		logger.Fatal().Err(err).Msg("Batch session failed")
		os.Exit(1)
	}

	stream.Close()
	<-streamDone

	if err := writeResult(result, *outputPath); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write batch result")
		os.Exit(1)
	}

	if result.Stats.SitesFailed > 0 {
		os.Exit(1)
	}
}

// collectSites merges positional URLs with the optional sites file,
// skipping blank lines and comments.
func collectSites(args []string, path string) ([]string, error) {
	sites := append([]string{}, args...)
	if path == "" {
		return sites, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sites file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}
	return sites, nil
}

func writeResult(result interface{}, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
