package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/scheduler"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Conversational agent host with dialog memory, channels, and scheduling",
		Long: strings.TrimSpace(`agenthost runs a dialog-driven conversational agent.

Use CLI commands to initialize configuration, chat locally, run the channel
gateway, and manage scheduled proactive messages.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newInitCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newJobsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   "Initialize ~/.agenthost config and workspace",
		Long:    "Create the default configuration file and workspace directory for a new installation.",
		Example: "  agenthost init",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCmd()
		},
	}
}

func newChatCommand() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent locally (no channels)",
		Long:  "Run an interactive local session or send a one-shot message without starting the gateway.",
		Example: strings.Join([]string{
			"  agenthost chat",
			"  agenthost chat --message \"weather in Oslo\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chatCmd(message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send to the agent")
	return cmd
}

func newGatewayCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "gateway",
		Short:   "Run the channel gateway and agent loop",
		Long:    "Start enabled channels, the agent turn loop, and the job scheduler.",
		Example: "  agenthost gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return gatewayCmd()
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  agenthost status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  agenthost version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

// openJobStore loads the scheduler store for offline management. The
// gateway process picks up changes the next time it loads the file.
func openJobStore() (*scheduler.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b := bus.NewActivityBus()
	jobsPath := filepath.Join(cfg.WorkspacePath(), "scheduler", "jobs.json")
	s := scheduler.NewService(jobsPath, b, time.Second)
	if err := s.Load(); err != nil {
		b.Close()
		return nil, nil, err
	}
	return s, b.Close, nil
}

func newJobsCommand() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "Manage scheduled proactive messages",
		Long:  "Create and manage recurring or cron-expression jobs that send messages into a conversation.",
	}

	jobsRoot.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List scheduled jobs",
		Example: "  agenthost jobs list",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openJobStore()
			if err != nil {
				return err
			}
			defer done()

			jobs := s.ListJobs()
			if len(jobs) == 0 {
				fmt.Println("No jobs scheduled.")
				return nil
			}
			for _, job := range jobs {
				state := "enabled"
				if !job.Enabled {
					state = "disabled"
				}
				next := "-"
				if job.State.NextRunMS > 0 {
					next = time.UnixMilli(job.State.NextRunMS).Format(time.RFC3339)
				}
				fmt.Printf("%s  %-20s %-8s runs=%d next=%s\n", job.ID, job.Name, state, job.State.RunCount, next)
			}
			return nil
		},
	})

	var (
		name         string
		message      string
		every        int64
		expr         string
		channel      string
		conversation string
		user         string
	)

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a scheduled job",
		Long:  "Add a recurring job with either --every (seconds) or --cron expression.",
		Example: strings.Join([]string{
			"  agenthost jobs add --name water --message \"drink water\" --every 3600 --channel console --conversation console",
			"  agenthost jobs add --name standup --message \"daily standup\" --cron '0 9 * * 1-5' --channel discord --conversation 1234",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("--message is required")
			}
			if every <= 0 && strings.TrimSpace(expr) == "" {
				return fmt.Errorf("either --every or --cron must be provided")
			}
			if every > 0 && strings.TrimSpace(expr) != "" {
				return fmt.Errorf("--every and --cron are mutually exclusive")
			}
			if strings.TrimSpace(channel) == "" || strings.TrimSpace(conversation) == "" {
				return fmt.Errorf("--channel and --conversation are required")
			}

			s, done, err := openJobStore()
			if err != nil {
				return err
			}
			defer done()

			schedule := scheduler.Schedule{Kind: scheduler.KindCron, Expr: expr}
			if every > 0 {
				schedule = scheduler.Schedule{Kind: scheduler.KindEvery, EveryMS: every * 1000}
			}
			ref := schema.ConversationReference{
				ChannelID:    channel,
				Conversation: schema.ConversationAccount{ID: conversation},
				User:         schema.ChannelAccount{ID: user},
			}

			job, err := s.AddJob(name, schedule, message, ref)
			if err != nil {
				return err
			}
			fmt.Printf("Added job %s (%s)\n", job.ID, job.Name)
			return nil
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "Job name")
	add.Flags().StringVarP(&message, "message", "m", "", "Message to send when the job fires")
	add.Flags().Int64VarP(&every, "every", "e", 0, "Run every N seconds")
	add.Flags().StringVarP(&expr, "cron", "c", "", "Cron expression (e.g. '0 9 * * *')")
	add.Flags().StringVar(&channel, "channel", "", "Target channel (console, discord)")
	add.Flags().StringVar(&conversation, "conversation", "", "Target conversation ID")
	add.Flags().StringVar(&user, "user", "", "Target user ID (optional)")
	jobsRoot.AddCommand(add)

	remove := &cobra.Command{
		Use:     "remove <job_id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a scheduled job",
		Args:    cobra.ExactArgs(1),
		Example: "  agenthost jobs remove 5f9b2c",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openJobStore()
			if err != nil {
				return err
			}
			defer done()
			if err := s.RemoveJob(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed job %s\n", args[0])
			return nil
		},
	}
	jobsRoot.AddCommand(remove)

	enable := &cobra.Command{
		Use:     "enable <job_id>",
		Short:   "Enable a disabled job",
		Args:    cobra.ExactArgs(1),
		Example: "  agenthost jobs enable 5f9b2c",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openJobStore()
			if err != nil {
				return err
			}
			defer done()
			return s.EnableJob(args[0], true)
		},
	}
	jobsRoot.AddCommand(enable)

	disable := &cobra.Command{
		Use:     "disable <job_id>",
		Short:   "Disable a job",
		Args:    cobra.ExactArgs(1),
		Example: "  agenthost jobs disable 5f9b2c",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openJobStore()
			if err != nil {
				return err
			}
			defer done()
			return s.EnableJob(args[0], false)
		},
	}
	jobsRoot.AddCommand(disable)

	return jobsRoot
}
