package awsx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// Notifier publishes failover events to an SNS topic.
type Notifier struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

// NewNotifier creates a notifier for the given topic.
func NewNotifier(client *sns.Client, topicARN string, logger *zap.Logger) (*Notifier, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("awsx: topic ARN required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, topicARN: topicARN, logger: logger}, nil
}

// Publish sends a JSON-encoded payload to the topic.
func (n *Notifier) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("awsx: marshal notification: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(data)),
	})
	if err != nil {
		return fmt.Errorf("awsx: publish to %s: %w", n.topicARN, err)
	}

	n.logger.Debug("notification published",
		zap.String("topic", n.topicARN),
		zap.String("subject", subject))
	return nil
}
