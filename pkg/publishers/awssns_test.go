package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherPublishSuccess(t *testing.T) {
	client := &fakeSNS{}
	pub := &snsPublisher{
		id:       "sns-1",
		topicARN: "arn:aws:sns:::topic",
		api:      client,
		log:      nopLogger{},
	}

	if err := pub.Publish(context.Background(), hybridEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["vin"]
	if !ok || aws.ToString(attr.StringValue) != "TMBJM0CKV1N12345" {
		t.Fatalf("vin attribute missing or wrong: %#v", attr)
	}
	if aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if got := aws.ToString(client.input.MessageAttributes["car_type"].StringValue); got != "hybrid" {
		t.Fatalf("car_type attribute = %q", got)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"remaining_range_in_km":670`) {
		t.Fatalf("Message missing range: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherPublishError(t *testing.T) {
	pub := &snsPublisher{
		id:       "sns-1",
		topicARN: "arn:aws:sns:::topic",
		api:      &fakeSNS{err: errors.New("boom")},
		log:      nopLogger{},
	}

	if err := pub.Publish(context.Background(), hybridEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSPublisherFIFOTopic(t *testing.T) {
	arn := "arn:aws:sns:eu-central-1:123:range.fifo"
	api := &fakeSNS{}
	pub := &snsPublisher{id: "sns-fifo", topicARN: arn, fifo: isFIFO(arn), api: api, log: nopLogger{}}

	evt := hybridEvent()
	evt.Fingerprint = "f00d"
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(api.input.MessageGroupId) != evt.VIN || aws.ToString(api.input.MessageDeduplicationId) != evt.VIN+"-f00d" {
		t.Fatalf("fifo ids not set: %#v", api.input)
	}
	if got := aws.ToString(api.input.MessageAttributes["fingerprint"].StringValue); got != "f00d" {
		t.Fatalf("fingerprint attribute = %q", got)
	}
}
