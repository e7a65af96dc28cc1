// Command findash-relay consumes chat messages queued on the broker and
// delivers them to Slack.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"findash/internal/amqp"
	"findash/internal/cli"
	"findash/internal/log"
	"findash/internal/notify/slack"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger = logger.WithComponent(log.ComponentAMQP)

	if cfg.AMQPURL == "" || cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
		logger.Error("The relay needs AMQP_URL, SLACK_BOT_TOKEN and SLACK_CHANNEL_ID")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannelID)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Starting findash-relay", "queue", cfg.AMQPQueue, "channel", cfg.SlackChannelID, log.FieldOperation, log.OpStartup)
	if err := client.Run(ctx, poster.Post); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
