package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/filter"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/logging"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/server"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/version"
)

func main() {
	cfg := server.DefaultConfig()

	flag.StringVar(&cfg.Host, "host", cfg.Host, "Bind host (empty for all interfaces)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "TCP listen port (1024-65535)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite history database file path")
	flag.StringVar(&cfg.BadWordsFile, "badwords", "", "Line-delimited bad-word list file (empty to disable filtering)")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.BoolVar(&cfg.ExportHistory, "export-history", false, "Export the chat history as YAML and exit")

	configFile := flag.String("config", "", "Optional YAML config file")
	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	// Config file fills in whatever was not set explicitly on the command
	// line; flags win.
	if *configFile != "" {
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

		fileCfg := cfg
		if err := server.LoadConfigFile(*configFile, &fileCfg); err != nil {
			slog.Error("load config file", "err", err)
			os.Exit(1)
		}
		if !set["host"] {
			cfg.Host = fileCfg.Host
		}
		if !set["port"] {
			cfg.Port = fileCfg.Port
		}
		if !set["db"] {
			cfg.DBPath = fileCfg.DBPath
		}
		if !set["badwords"] {
			cfg.BadWordsFile = fileCfg.BadWordsFile
		}
		if !set["metrics"] {
			cfg.MetricsAddr = fileCfg.MetricsAddr
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage: server [-port 1024-65535]\n", err)
		os.Exit(1)
	}

	// Handle export command (run and exit)
	if cfg.ExportHistory {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			slog.Error("open database", "err", err)
			os.Exit(1)
		}
		defer func() { _ = st.Close() }()

		data, err := server.ExportHistoryYAML(st)
		if err != nil {
			slog.Error("export history", "err", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	var f *filter.Filter
	if cfg.BadWordsFile != "" {
		var err error
		f, err = filter.LoadFile(cfg.BadWordsFile)
		if err != nil {
			slog.Error("load bad-word list", "err", err)
			os.Exit(1)
		}
		slog.Info("bad-word filter loaded", "words", f.Len())
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	slog.Info("starting chat server", "version", version.String(), "addr", cfg.Addr())
	srv := server.New(cfg, server.Dependencies{History: st, Filter: f})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
