package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-delivery-messaging/internal/config"
	"github.com/go-delivery-messaging/internal/domain"
)

// API is the subset of *sns.Client the gateway calls.
type API interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Subscribe(ctx context.Context, in *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	Unsubscribe(ctx context.Context, in *sns.UnsubscribeInput, optFns ...func(*sns.Options)) (*sns.UnsubscribeOutput, error)
	ListSubscriptionsByTopic(ctx context.Context, in *sns.ListSubscriptionsByTopicInput, optFns ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error)
}

// Gateway delivers pushes through SNS mobile push. Session ids are device tokens
// registered as endpoints of one platform application; staff broadcasts go to one topic.
type Gateway struct {
	client         API
	platformAppARN string
	staffTopicARN  string
}

func NewGateway(client API, platformAppARN, staffTopicARN string) *Gateway {
	return &Gateway{client: client, platformAppARN: platformAppARN, staffTopicARN: staffTopicARN}
}

// NewGatewayFromConfig builds the SNS client once for the process lifetime.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config) (*Gateway, error) {
	if cfg.SNSPlatformApplicationARN == "" || cfg.SNSStaffTopicARN == "" {
		return nil, errors.New("SNS platform application or staff topic ARN not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return NewGateway(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSPlatformApplicationARN, cfg.SNSStaffTopicARN), nil
}

// endpointARN registers the device token with the platform application. SNS returns
// the existing endpoint when the token is already registered with the same attributes.
func (g *Gateway) endpointARN(ctx context.Context, token string) (string, error) {
	out, err := g.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(g.platformAppARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", fmt.Errorf("create platform endpoint: %w", err)
	}
	if out.EndpointArn == nil {
		return "", errors.New("create platform endpoint: empty endpoint ARN")
	}
	return *out.EndpointArn, nil
}

func (g *Gateway) PushToDevice(ctx context.Context, sessionID string, p domain.PushPayload) error {
	arn, err := g.endpointARN(ctx, sessionID)
	if err != nil {
		return err
	}
	body, err := encodePayload(p)
	if err != nil {
		return err
	}
	_, err = g.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(arn),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	return err
}

func (g *Gateway) PushToTopic(ctx context.Context, p domain.PushPayload) error {
	body, err := encodePayload(p)
	if err != nil {
		return err
	}
	_, err = g.client.Publish(ctx, &sns.PublishInput{
		TopicArn:         aws.String(g.staffTopicARN),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	return err
}

func (g *Gateway) SubscribeToTopic(ctx context.Context, sessionID string) error {
	arn, err := g.endpointARN(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = g.client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(g.staffTopicARN),
		Protocol: aws.String("application"),
		Endpoint: aws.String(arn),
	})
	return err
}

// UnsubscribeFromTopic removes the endpoint's subscription. Not being subscribed is not an error.
func (g *Gateway) UnsubscribeFromTopic(ctx context.Context, sessionID string) error {
	arn, err := g.endpointARN(ctx, sessionID)
	if err != nil {
		return err
	}
	p := sns.NewListSubscriptionsByTopicPaginator(g.client, &sns.ListSubscriptionsByTopicInput{
		TopicArn: aws.String(g.staffTopicARN),
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list topic subscriptions: %w", err)
		}
		for _, sub := range out.Subscriptions {
			if aws.ToString(sub.Endpoint) != arn {
				continue
			}
			_, err := g.client.Unsubscribe(ctx, &sns.UnsubscribeInput{SubscriptionArn: sub.SubscriptionArn})
			return err
		}
	}
	return nil
}

// encodePayload renders the per-platform JSON envelope SNS expects with MessageStructure=json.
func encodePayload(p domain.PushPayload) (string, error) {
	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{"body": p.Text},
		"data":         p,
	})
	if err != nil {
		return "", fmt.Errorf("encode GCM payload: %w", err)
	}
	apns, err := json.Marshal(map[string]interface{}{
		"aps":     map[string]interface{}{"alert": p.Text},
		"payload": p,
	})
	if err != nil {
		return "", fmt.Errorf("encode APNS payload: %w", err)
	}
	envelope, err := json.Marshal(map[string]string{
		"default": p.Text,
		"GCM":     string(gcm),
		"APNS":    string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("encode push envelope: %w", err)
	}
	return string(envelope), nil
}
