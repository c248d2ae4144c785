package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
	"github.com/Veraticus/claude-pty-notify/pkg/hook"
	"github.com/Veraticus/claude-pty-notify/pkg/logging"
	"github.com/Veraticus/claude-pty-notify/pkg/notification"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr))
}

// run handles one hook invocation. The hook never blocks the agent: every
// failure except a lost reply exits 0.
func run(stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "claude-pty-hook: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logger := logging.NewOrNop(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = logger.Sync() }()

	rulesPath := hook.RulesPath()
	rules, err := hook.LoadRules(rulesPath)
	if err != nil {
		logger.Debug("hook rules unavailable, all events disabled", zap.String("path", rulesPath), zap.Error(err))
	}

	payload, err := io.ReadAll(stdin)
	if err != nil {
		logger.Debug("failed to read hook payload", zap.Error(err))
	}

	manager := notification.NewManager(notification.NewSink(cfg, stderr), logger)
	defer func() { _ = manager.Close() }()

	h := hook.NewHandler(rules, manager, cfg.Title, stdout, logger)
	if err := h.Handle(payload); err != nil {
		fmt.Fprintf(stderr, "claude-pty-hook: %v\n", err)
		return 1
	}
	return 0
}
