package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ipvcore/internal/credentials"
	"ipvcore/internal/platform/kafka/admin"
	"ipvcore/internal/platform/kafka/consumer"
	"ipvcore/internal/platform/kafka/producer"
)

func newConsumeCmd(opts *rootOptions) *cobra.Command {
	var ensureTopics bool
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume asynchronously delivered credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsume(cmd.Context(), opts, ensureTopics)
		},
	}
	cmd.Flags().BoolVar(&ensureTopics, "ensure-topics", false, "create missing topics before consuming")
	return cmd
}

func runConsume(ctx context.Context, opts *rootOptions, ensureTopics bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kcfg := opts.cfg.Kafka
	if len(kcfg.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	a, err := newApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if ensureTopics {
		specs := []admin.TopicSpec{{Name: kcfg.AsyncTopic}, {Name: kcfg.RetryTopic}, {Name: kcfg.DLQTopic}}
		if err := admin.EnsureTopics(ctx, kcfg.Brokers, a.logger, specs...); err != nil {
			return err
		}
	}

	republisher, err := producer.New(kcfg.Brokers)
	if err != nil {
		return err
	}
	defer republisher.Close()

	handler := credentials.NewBatchHandler(a.credentials, a.logger)
	router := consumer.NewRouter(a.logger, nil)
	router.Register(kcfg.AsyncTopic, handler)
	router.Register(kcfg.RetryTopic, handler)

	c, err := consumer.New(consumer.Config{
		Brokers:     kcfg.Brokers,
		Group:       kcfg.Group,
		Topics:      []string{kcfg.AsyncTopic},
		RetryTopic:  kcfg.RetryTopic,
		DLQTopic:    kcfg.DLQTopic,
		MaxAttempts: kcfg.MaxAttempts,
	}, router,
		consumer.WithLogger(a.logger),
		consumer.WithMetrics(consumer.NewMetrics()),
		consumer.WithRepublisher(republisher),
	)
	if err != nil {
		return err
	}
	a.logger.Info("consuming async credentials", "topic", kcfg.AsyncTopic, "group", kcfg.Group)
	return c.Run(ctx)
}
