package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher publishes each event to a topic. Attributes allow
// subscription filter policies on vin and car_type.
type snsPublisher struct {
	id       string
	topicARN string
	fifo     bool
	api      snsAPI
	log      Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q: sns block is required", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWSConfig)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	endpoint := baseEndpoint(cfg.SNS.Endpoint)
	api := sns.NewFromConfig(awsCfg, func(o *sns.Options) { o.BaseEndpoint = endpoint })

	return &snsPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		fifo:     isFIFO(cfg.SNS.TopicARN),
		api:      api,
		log:      loggerOrNop(log),
	}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }

func (s *snsPublisher) Publish(ctx context.Context, evt Event) error {
	body, attrs, err := evt.encode()
	if err != nil {
		return err
	}

	in := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(body)),
		MessageAttributes: make(map[string]types.MessageAttributeValue, len(attrs)),
	}
	for k, v := range attrs {
		in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	if s.fifo {
		in.MessageGroupId = aws.String(evt.VIN)
		in.MessageDeduplicationId = aws.String(evt.dedupKey())
	}

	out, err := s.api.Publish(ctx, in)
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", s.topicARN, err)
	}
	s.log.DebugObj("driving range sent to sns", "sns_delivery", map[string]any{
		"publisher_id": s.id,
		"vin":          evt.VIN,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
