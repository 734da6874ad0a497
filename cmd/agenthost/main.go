package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/dotsetgreg/agenthost/pkg/agent"
	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/channels"
	"github.com/dotsetgreg/agenthost/pkg/config"
	"github.com/dotsetgreg/agenthost/pkg/dialogs"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/recognizers"
	"github.com/dotsetgreg/agenthost/pkg/scheduler"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

const appName = "agenthost"

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += " (" + gitCommit + ")"
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("built: %s\n", buildTime)
	}
}

func configPath() string {
	if p := os.Getenv("AGENTHOST_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agenthost", "config.json")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	return cfg, nil
}

// runtime bundles everything a running host needs.
type runtime struct {
	cfg     *config.Config
	bus     *bus.ActivityBus
	loop    *agent.AgentLoop
	storage state.Storage
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	storage, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	activityBus := bus.NewActivityBus()
	loop := agent.NewAgentLoop(storage, activityBus, nil)

	set, recognizer := buildAssistantDialogs()
	runner := agent.NewDialogRunner(set, "assistant",
		loop.UserState(), loop.ConversationState(),
		agent.DialogRunnerOptions{
			Recognizer:        recognizer,
			Settings:          cfg.Settings(),
			DefaultScope:      cfg.Agent.DefaultScope,
			MaxResolverPasses: cfg.Agent.MaxResolverPasses,
		})
	loop.SetHandler(runner)

	return &runtime{
		cfg:     cfg,
		bus:     activityBus,
		loop:    loop,
		storage: storage,
	}, nil
}

func openStorage(cfg *config.Config) (state.Storage, error) {
	switch cfg.Storage.Driver {
	case "", "sqlite":
		store, err := state.NewSQLiteStorage(cfg.StoragePath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	case "memory":
		return state.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildAssistantDialogs assembles the built-in assistant: a component
// hosting a waterfall that remembers the user's name and answers simple
// weather questions through recognized entities.
func buildAssistantDialogs() (*dialogs.DialogSet, recognizers.Recognizer) {
	r := recognizers.NewRegexpRecognizer()
	_ = r.AddIntent("Greeting", `(?i)^(hi|hello|hey)\b`)
	_ = r.AddIntent("Weather", `(?i)weather in (?P<city>\w+)`)

	flow := dialogs.NewWaterfallDialog("main",
		func(sc *dialogs.WaterfallStepContext) (dialogs.DialogTurnResult, error) {
			sm := sc.Context().State()

			city, err := sm.GetStringValue("@city", "")
			if err != nil {
				return dialogs.DialogTurnResult{}, err
			}
			if city != "" {
				sc.SendText(fmt.Sprintf("I don't have live forecasts yet, but I hope it's sunny in %s.", city))
				return sc.EndDialog(nil)
			}

			name, err := sm.GetStringValue("user.profile.name", "")
			if err != nil {
				return dialogs.DialogTurnResult{}, err
			}
			if name != "" {
				sc.SendText("Hello again, " + name + "!")
				return sc.EndDialog(nil)
			}

			return sc.BeginDialog("askName", dialogs.PromptOptions{
				Prompt:      "Hi! What should I call you?",
				RetryPrompt: "Sorry, I didn't catch that. What's your name?",
			})
		},
		func(sc *dialogs.WaterfallStepContext) (dialogs.DialogTurnResult, error) {
			name, _ := sc.Result().(string)
			if err := sc.Context().State().SetValue("user.profile.name", name); err != nil {
				return dialogs.DialogTurnResult{}, err
			}
			sc.SendText("Nice to meet you, " + name + "!")
			return sc.EndDialog(name)
		},
	)

	root := dialogs.NewComponentDialog("assistant").
		AddDialog(flow).
		AddDialog(dialogs.NewTextPrompt("askName"))

	return dialogs.NewDialogSet(root), r
}

func initCmd() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.WorkspacePath(), 0755); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", path)
	fmt.Printf("Workspace: %s\n", cfg.WorkspacePath())
	return nil
}

func chatCmd(message string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()

	if strings.TrimSpace(message) != "" {
		response, err := rt.loop.ProcessDirect(ctx, message, "direct")
		if err != nil {
			return err
		}
		fmt.Println(response)
		return nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".agenthost_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s %s — type 'exit' to quit\n\n", appName, formatVersion())

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		response, err := rt.loop.ProcessDirect(ctx, input, "direct")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", response)
	}
}

func gatewayCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	channelManager, err := channels.NewManager(cfg, rt.bus)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		return err
	}

	var sched *scheduler.Service
	if cfg.Scheduler.Enabled {
		jobsPath := filepath.Join(cfg.WorkspacePath(), "scheduler", "jobs.json")
		sched = scheduler.NewService(jobsPath, rt.bus, time.Duration(cfg.Scheduler.TickSeconds)*time.Second)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	go func() {
		if err := rt.loop.Run(ctx); err != nil {
			logger.ErrorCF("gateway", "Agent loop exited", map[string]any{"error": err.Error()})
		}
	}()

	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(channelManager.GetEnabledChannels(), ", "))
	fmt.Println("Press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	rt.loop.Stop()
	if sched != nil {
		sched.Stop()
	}
	if err := channelManager.StopAll(context.Background()); err != nil {
		logger.WarnCF("gateway", "Error stopping channels", map[string]any{"error": err.Error()})
	}
	return nil
}

func statusCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n\n", appName, formatVersion())
	fmt.Printf("Config:    %s\n", configPath())
	fmt.Printf("Workspace: %s\n", cfg.WorkspacePath())
	fmt.Printf("Storage:   %s (%s)\n", cfg.Storage.Driver, cfg.StoragePath())
	fmt.Printf("Log level: %s\n", logger.GetLevel())

	enabled := []string{}
	if cfg.Channels.Console.Enabled {
		enabled = append(enabled, "console")
	}
	if cfg.Channels.Discord.Enabled {
		enabled = append(enabled, "discord")
	}
	if len(enabled) == 0 {
		enabled = append(enabled, "none")
	}
	fmt.Printf("Channels:  %s\n", strings.Join(enabled, ", "))
	fmt.Printf("Scheduler: enabled=%t tick=%ds\n", cfg.Scheduler.Enabled, cfg.Scheduler.TickSeconds)
	return nil
}

func (rt *runtime) close() {
	rt.bus.Close()
	if closer, ok := rt.storage.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
