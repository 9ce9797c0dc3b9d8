package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/infrastructure/awscfg"
)

// Email job kinds, carried in the "kind" message attribute.
const (
	KindOTP   = "otp"
	KindReset = "reset"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher hands email jobs to an SNS topic for an out-of-process sender.
type Publisher struct {
	client   publishAPI
	topicARN string
}

// Job is the JSON body published for each email.
type Job struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg, opts...), topicARN: cfg.EmailSNSTopicARN}, nil
}

func (p *Publisher) SendOTP(ctx context.Context, msg domain.OTPEmail) error {
	return p.publish(ctx, KindOTP, msg)
}

func (p *Publisher) SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error {
	return p.publish(ctx, KindReset, msg)
}

func (p *Publisher) publish(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s email job: %w", kind, err)
	}
	body, err := json.Marshal(Job{Kind: kind, Payload: raw})
	if err != nil {
		return fmt.Errorf("encode %s email job: %w", kind, err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s email job: %w", kind, err)
	}
	return nil
}
