package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-guido/internal/config"
	guidolog "github.com/teslashibe/go-guido/internal/log"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the assistant until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFiles(opts.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(opts.viper, opts.configFile)
			if err != nil {
				return err
			}

			guidolog.InitWithOptions(guidolog.Options{
				Level: cfg.Log.Level,
				File:  cfg.Log.File,
				JSON:  cfg.Log.JSON,
			})
			defer guidolog.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := wire(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), guidolog.L())
			if err != nil {
				return err
			}
			return app.run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("transcript", config.TranscriptConsole, "speech recognizer: console, vosk, google")
	flags.Bool("typed", false, "also accept typed utterances alongside a microphone backend")
	flags.String("speech", config.SpeechConsole, "voice: console, openai, elevenlabs")
	flags.String("robot", config.RobotLog, "robot actuator: log, http")
	flags.String("robot-url", "", "robot daemon base URL")
	flags.Bool("web", false, "serve the dashboard")
	flags.String("addr", "", "dashboard listen address")
	flags.String("journal", "", "SQLite journal path; empty disables it")
	flags.String("nats", "", "NATS server URL for event forwarding")

	bind := map[string]string{
		"transcript.backend": "transcript",
		"transcript.typed":   "typed",
		"speech.backend":     "speech",
		"robot.backend":      "robot",
		"robot.url":          "robot-url",
		"web.enabled":        "web",
		"web.addr":           "addr",
		"journal.path":       "journal",
		"events.nats_url":    "nats",
	}
	for key, flag := range bind {
		_ = opts.viper.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}
