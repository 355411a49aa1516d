// Command dupworker drains the duplication task queue and drives the
// DuplicationTaskProcessor over a bounded pool of concurrent workers,
// deleting each task on success. Visibility is not extended while a task
// runs: a task that outlasts the queue's visibility timeout becomes visible
// again and may be redelivered.
package main

import (
	"context"
	"errors"
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
	"golang.org/x/sync/errgroup"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/config"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/processor"
	"github.com/duplicationmill/core/queue"
	"github.com/duplicationmill/core/queue/memqueue"
	"github.com/duplicationmill/core/queue/sqs"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/stores"
)

func main() {
	app := &cli.App{
		Name:  "dupworker",
		Usage: "drain the duplication task queue and reconcile each task",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to the worker's YAML property file", Required: true},
			&cli.IntFlag{Name: "concurrency", Usage: "number of tasks processed concurrently", Value: 8},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		nlog.Errorf("dupworker: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := nlog.Init(cfg.LogLevel, false); err != nil {
		return err
	}

	if err := processor.CleanStaging(cfg.StagingDir); err != nil {
		nlog.Warningf("dupworker: staging cleanup: %v", err)
	}

	q, err := buildQueue(cfg)
	if err != nil {
		return fmt.Errorf("dupworker: build queue: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	resolver := stores.New(cfg)
	proc := processor.New(processor.Config{
		StagingDir:    cfg.StagingDir,
		StagingDevice: cfg.StagingDevice,
		Retry:         retry.DefaultOptions,
	}, resolver, m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	concurrency := c.Int("concurrency")
	if concurrency <= 0 {
		concurrency = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return workerLoop(gctx, q, proc)
		})
	}
	return g.Wait()
}

// workerLoop repeatedly takes one task, processes it, and deletes it on
// success. A fatal task error is logged and the task is still deleted
// (dead-lettering is left to the queue's own redrive policy on repeated
// non-acknowledgement for transient failures, which this loop leaves
// un-acked by simply not calling Delete).
func workerLoop(ctx context.Context, q queue.Queue, proc *processor.Processor) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		d, err := q.Take(ctx)
		if err != nil {
			if cmn.IsNotFound(err) || errors.Is(err, cmn.ErrTimeout) {
				time.Sleep(time.Second)
				continue
			}
			return err
		}

		if err := proc.Process(ctx, d.Task); err != nil {
			if retry.Classify(err) == retry.KindFatal {
				nlog.Errorf("dupworker: fatal task %s: %v", d.Task.Identity(), err)
				if err := q.Delete(ctx, d); err != nil && !cmn.IsNotFound(err) {
					nlog.Errorf("dupworker: delete fatal task %s: %v", d.Task.Identity(), err)
				}
				continue
			}
			nlog.Warningf("dupworker: transient failure on task %s, leaving for redrive: %v", d.Task.Identity(), err)
			continue
		}

		if err := q.Delete(ctx, d); err != nil && !cmn.IsNotFound(err) {
			nlog.Errorf("dupworker: delete completed task %s: %v", d.Task.Identity(), err)
		}
	}
}

// buildQueue mirrors dupproducer's queue selection: an in-memory queue for
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
