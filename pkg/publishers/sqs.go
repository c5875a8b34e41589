package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher sends each event as one SQS message. FIFO queues are grouped
// by VIN so readings of one vehicle stay ordered.
type sqsPublisher struct {
	id       string
	queueURL string
	fifo     bool
	api      sqsAPI
	log      Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q: sqs block is required", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.AWSConfig)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	endpoint := baseEndpoint(cfg.SQS.Endpoint)
	api := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) { o.BaseEndpoint = endpoint })

	return &sqsPublisher{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		fifo:     isFIFO(cfg.SQS.QueueURL),
		api:      api,
		log:      loggerOrNop(log),
	}, nil
}

func (s *sqsPublisher) ID() string   { return s.id }
func (s *sqsPublisher) Type() string { return TypeSQS }

func (s *sqsPublisher) Publish(ctx context.Context, evt Event) error {
	body, attrs, err := evt.encode()
	if err != nil {
		return err
	}

	in := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: make(map[string]types.MessageAttributeValue, len(attrs)),
	}
	for k, v := range attrs {
		in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	if s.fifo {
		in.MessageGroupId = aws.String(evt.VIN)
		in.MessageDeduplicationId = aws.String(evt.dedupKey())
	}

	out, err := s.api.SendMessage(ctx, in)
	if err != nil {
		return fmt.Errorf("sqs send to %s: %w", s.queueURL, err)
	}
	s.log.DebugObj("driving range sent to sqs", "sqs_delivery", map[string]any{
		"publisher_id": s.id,
		"vin":          evt.VIN,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
