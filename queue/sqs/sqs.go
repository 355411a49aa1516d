// Package sqs implements queue.Queue against Amazon SQS. PutBatch maps
// directly onto SendMessageBatch, which is capped at 10 entries per call —
// exactly why the producer batches enqueues in groups of 10.
package sqs

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/queue"
	"github.com/duplicationmill/core/task"
)

const maxBatchSize = 10

// Queue is a queue.Queue backed by one SQS queue URL.
type Queue struct {
	client          *awssqs.Client
	queueURL        string
	waitTimeSeconds int32
	visibilitySec   int32
}

// New builds a Queue against an already-resolved SQS queue URL.
func New(client *awssqs.Client, queueURL string, waitTimeSeconds, visibilitySeconds int32) *Queue {
	return &Queue{client: client, queueURL: queueURL, waitTimeSeconds: waitTimeSeconds, visibilitySec: visibilitySeconds}
}

var _ queue.Queue = (*Queue)(nil)

func (q *Queue) PutBatch(ctx context.Context, tasks []task.Task) error {
	for start := 0; start < len(tasks); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		if err := q.putBatchOnce(ctx, tasks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) putBatchOnce(ctx context.Context, batch []task.Task) error {
	entries := make([]types.SendMessageBatchRequestEntry, 0, len(batch))
	for i, t := range batch {
		body, err := task.WriteTask(t)
		if err != nil {
			return err
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(i)),
			MessageBody: aws.String(string(body)),
		})
	}
	_, err := q.client.SendMessageBatch(ctx, &awssqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
	return err
}

func (q *Queue) Take(ctx context.Context) (queue.Delivery, error) {
	out, err := q.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.waitTimeSeconds,
		VisibilityTimeout:   q.visibilitySec,
	})
	if err != nil {
		return queue.Delivery{}, err
	}
	if len(out.Messages) == 0 {
		return queue.Delivery{}, cmn.ErrTimeout
	}
	msg := out.Messages[0]
	t, err := task.ReadTask([]byte(aws.ToString(msg.Body)))
	if err != nil {
		return queue.Delivery{}, err
	}
	return queue.Delivery{Task: t, Receipt: aws.ToString(msg.ReceiptHandle)}, nil
}

func (q *Queue) ExtendVisibility(ctx context.Context, d queue.Delivery) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.queueURL),
		ReceiptHandle:     aws.String(d.Receipt),
		VisibilityTimeout: q.visibilitySec,
	})
	if isReceiptInvalid(err) {
		return cmn.ErrTaskNotFound
	}
	return err
}

func (q *Queue) Delete(ctx context.Context, d queue.Delivery) error {
	_, err := q.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(d.Receipt),
	})
	if isReceiptInvalid(err) {
		return cmn.ErrTaskNotFound
	}
	return err
}

func (q *Queue) Size(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, err
	}
	raw := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func isReceiptInvalid(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.ReceiptHandleIsInvalid
	var invalid *types.InvalidIdFormat
	return asType(err, &notFound) || asType(err, &invalid)
}
