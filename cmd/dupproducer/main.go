// Command dupproducer runs the LoopingTaskProducer in a loop, enqueuing
// duplication tasks for every tenant/space/store-pair named by the
// configured policy file until signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/duplicationmill/core/config"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/policy"
	"github.com/duplicationmill/core/producer"
	"github.com/duplicationmill/core/queue"
	"github.com/duplicationmill/core/queue/memqueue"
	"github.com/duplicationmill/core/queue/sqs"
	"github.com/duplicationmill/core/statestore"
	"github.com/duplicationmill/core/stores"
)

func main() {
	app := &cli.App{
		Name:  "dupproducer",
		Usage: "fill the duplication task queue from the current replication policy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to the producer's YAML property file", Required: true},
			&cli.StringFlag{Name: "state-file", Usage: "override config's state_file"},
			&cli.IntFlag{Name: "max-task-queue-size", Usage: "override config's max_task_queue_size"},
			&cli.DurationFlag{Name: "frequency", Usage: "override config's frequency"},
			&cli.StringFlag{Name: "task-queue-name", Usage: "override config's queue_name"},
			&cli.StringFlag{Name: "inclusion-list", Usage: "override config's inclusion_list"},
			&cli.StringFlag{Name: "exclusion-list", Usage: "override config's exclusion_list"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		nlog.Errorf("dupproducer: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyOverrides(cfg, c)

	if err := nlog.Init(cfg.LogLevel, false); err != nil {
		return err
	}

	q, err := buildQueue(cfg)
	if err != nil {
		return fmt.Errorf("dupproducer: build queue: %w", err)
	}

	state, err := statestore.Open(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("dupproducer: open state store: %w", err)
	}
	defer state.Close()

	inclusionLines, err := config.LoadLines(cfg.InclusionListPath)
	if err != nil {
		return err
	}
	exclusionLines, err := config.LoadLines(cfg.ExclusionListPath)
	if err != nil {
		return err
	}
	filter := policy.New(inclusionLines, exclusionLines)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	resolver := stores.New(cfg)
	p := producer.New(producer.Config{
		ProducerID:       cfg.ProducerID,
		MaxTaskQueueSize: cfg.MaxTaskQueueSize,
	}, resolver, q, state, filter, m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	frequency := cfg.Frequency.Duration
	if frequency <= 0 {
		frequency = time.Minute
	}

	for {
		snapshot, err := policy.LoadSnapshot(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("dupproducer: load policy: %w", err)
		}
		if err := p.Run(ctx, snapshot); err != nil {
			return fmt.Errorf("dupproducer: run: %w", err)
		}
		nlog.Infof("dupproducer: pass complete, sleeping %s", frequency)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(frequency):
		}
	}
}

func applyOverrides(cfg *config.Config, c *cli.Context) {
	if v := c.String("state-file"); v != "" {
		cfg.StateFile = v
	}
	if v := c.Int("max-task-queue-size"); v != 0 {
		cfg.MaxTaskQueueSize = v
	}
	if v := c.Duration("frequency"); v != 0 {
		cfg.Frequency.Duration = v
	}
	if v := c.String("task-queue-name"); v != "" {
		cfg.QueueName = v
	}
	if v := c.String("inclusion-list"); v != "" {
		cfg.InclusionListPath = v
	}
	if v := c.String("exclusion-list"); v != "" {
		cfg.ExclusionListPath = v
	}
}

// buildQueue builds a queue.Queue for cfg.QueueName: an in-memory queue for
// local runs and testing ("mem:" prefix), SQS otherwise.
func buildQueue(cfg *config.Config) (queue.Queue, error) {
	if _, ok := strings.CutPrefix(cfg.QueueName, "mem:"); ok {
		return memqueue.New(30 * time.Second), nil
	}
	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := awssqs.NewFromConfig(awsCfg)
	return sqs.New(client, cfg.QueueName, 10, 60), nil
}
