package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/orchestra-gw/internal/action"
	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/agent/builtin"
	"github.com/mattjoyce/orchestra-gw/internal/api"
	"github.com/mattjoyce/orchestra-gw/internal/audit"
	"github.com/mattjoyce/orchestra-gw/internal/auth"
	"github.com/mattjoyce/orchestra-gw/internal/config"
	"github.com/mattjoyce/orchestra-gw/internal/doctor"
	"github.com/mattjoyce/orchestra-gw/internal/events"
	"github.com/mattjoyce/orchestra-gw/internal/lock"
	"github.com/mattjoyce/orchestra-gw/internal/log"
	"github.com/mattjoyce/orchestra-gw/internal/quota"
	"github.com/mattjoyce/orchestra-gw/internal/storage"
	"github.com/mattjoyce/orchestra-gw/internal/task"
	"github.com/mattjoyce/orchestra-gw/internal/tui/watch"
	"github.com/mattjoyce/orchestra-gw/internal/workflow"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "agent":
		os.Exit(runAgentNoun(args))

	// --- ROOT ALIASES ---
	case "start":
		os.Exit(runStart(args))
	case "doctor":
		os.Exit(runConfigCheck(args))
	case "version":
		fmt.Printf("orchestra-gw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`orchestra-gw - Agent orchestration gateway

Usage:
  orchestra-gw <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    System configuration
  agent     Agent capability discovery

System Commands:
  system start      Start the gateway service in foreground
  system watch      Real-time monitoring TUI

Config Commands:
  config check      Validate configuration and state store
  config show       Show full resolved configuration

Agent Commands:
  agent list        Show declared agent types and workflows

General:
  version           Show version information
  help              Show this help message

Use 'orchestra-gw <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runAgentNoun(args []string) int {
	if len(args) < 1 {
		printAgentNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printAgentNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runAgentList(args[1:])
	case "help":
		printAgentNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown agent action: %s\n", args[0])
		return 1
	}
}

// --- HELP ---

func isHelpToken(s string) bool {
	return s == "help" || s == "--help" || s == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: orchestra-gw system <action>")
	fmt.Fprintln(w, "Actions: start, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: orchestra-gw config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, show")
}

func printAgentNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: orchestra-gw agent <action>")
	fmt.Fprintln(w, "Actions: list")
}

func printSystemStartHelp() {
	fmt.Println("Usage: orchestra-gw system start [--config PATH]")
	fmt.Println("Start the gateway service in the foreground.")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: orchestra-gw system watch [flags]")
	fmt.Println()
	fmt.Println("Real-time monitoring TUI.")
	fmt.Println("Shows gateway health, action counters, audit log, and event stream.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --api-url URL   Gateway API URL (default http://localhost:8080)")
	fmt.Println("  --api-key KEY   API bearer token (or ORCHESTRA_GW_API_KEY)")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: orchestra-gw config check [--config PATH] [--json]")
	fmt.Println("Validate configuration, state store access, and agent registration.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: orchestra-gw config show [--config PATH] [--json]")
	fmt.Println("Show full resolved configuration.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("orchestra-gw starting", "version", version, "config", *configPath)

	pidLockPath := filepath.Join(filepath.Dir(cfg.State.Path), "orchestra-gw.lock")
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) && held.HolderPID > 0 {
			logger.Error("another orchestra-gw instance is running", "path", pidLockPath, "holder_pid", held.HolderPID)
		} else {
			logger.Error("failed to acquire PID lock", "path", pidLockPath, "error", err)
		}
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	auditStore := audit.NewStore(db)

	var (
		gate   quota.Gate
		ledger *quota.Ledger
	)
	if cfg.Quota.Enabled {
		ledger = quota.NewLedger(db, quota.Limits{
			DailyBudget: cfg.Quota.DailyBudget,
			Overrides:   cfg.Quota.Overrides,
		})
		gate = ledger
		logger.Info("quota gate enabled", "daily_budget", cfg.Quota.DailyBudget)
	} else {
		gate = quota.AllowAll{}
		logger.Warn("quota gate disabled; tenants have unlimited budget")
	}

	registry := agent.NewRegistry(builtin.Capabilities(cfg.Agents.RepositoryRoot))
	logger.Info("agent registry ready", "agents", len(registry.Registered()))

	tasks := task.New(registry, gate, 0)
	workflows := workflow.New(tasks, gate)
	router := action.NewRouter(tasks, workflows)
	hub := events.NewHub(256)

	tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
	for _, t := range cfg.API.Auth.Tokens {
		tokens = append(tokens, auth.TokenConfig{
			Token:  t.Token,
			Tenant: t.Tenant,
			Scopes: t.Scopes,
		})
	}
	apiConfig := api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.Auth.APIKey,
		Tokens: tokens,
	}

	var spend api.SpendRecorder
	if ledger != nil {
		spend = ledger
	}
	apiServer := api.New(apiConfig, router, tasks, registry, auditStore, spend, hub, log.WithComponent("api"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	logger.Info("orchestra-gw running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("orchestra-gw stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "Gateway API URL")
	apiKey := fs.String("api-key", os.Getenv("ORCHESTRA_GW_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or ORCHESTRA_GW_API_KEY env var.")
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output report in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	registry := agent.NewRegistry(builtin.Capabilities(cfg.Agents.RepositoryRoot))
	result := doctor.New(cfg, registry).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to format report: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}

func runAgentList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	type workflowInfo struct {
		Name   string   `json:"name"`
		Stages []string `json:"stages,omitempty"`
	}
	type listing struct {
		Agents    []string       `json:"agents"`
		Workflows []workflowInfo `json:"workflows"`
	}

	var l listing
	for _, t := range agent.All() {
		l.Agents = append(l.Agents, string(t))
	}
	for _, t := range workflow.Declared() {
		l.Workflows = append(l.Workflows, workflowInfo{
			Name:   string(t),
			Stages: workflow.StageNames(t),
		})
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(l, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Println("Agents:")
	for _, a := range l.Agents {
		fmt.Printf("  %s\n", a)
	}
	fmt.Println("Workflows:")
	for _, w := range l.Workflows {
		if len(w.Stages) == 0 {
			fmt.Printf("  %s (declared, not implemented)\n", w.Name)
			continue
		}
		fmt.Printf("  %s: %s\n", w.Name, strings.Join(w.Stages, " -> "))
	}
	return 0
}
