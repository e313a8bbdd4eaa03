package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the slice of the SNS API used by conditional validation.
type SNSAPI interface {
	ListSubscriptionsByTopic(ctx context.Context, params *sns.ListSubscriptionsByTopicInput, optFns ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error)
	GetSubscriptionAttributes(ctx context.Context, params *sns.GetSubscriptionAttributesInput, optFns ...func(*sns.Options)) (*sns.GetSubscriptionAttributesOutput, error)
}

// SNSAccessor provides topic subscription lookups across regions.
type SNSAccessor struct {
	log       *slog.Logger
	newClient func(region string) SNSAPI

	mu      sync.Mutex
	clients map[string]SNSAPI
}

func NewSNSAccessor(sess *Session, log *slog.Logger) *SNSAccessor {
	return &SNSAccessor{
		log: log,
		newClient: func(region string) SNSAPI {
			return sns.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]SNSAPI),
	}
}

// NewSNSAccessorWithFactory is the injection point for tests.
func NewSNSAccessorWithFactory(factory func(region string) SNSAPI, log *slog.Logger) *SNSAccessor {
	return &SNSAccessor{log: log, newClient: factory, clients: make(map[string]SNSAPI)}
}

func (a *SNSAccessor) client(region string) SNSAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// Subscriptions lists all subscriptions on a topic.
func (a *SNSAccessor) Subscriptions(ctx context.Context, topicARN, region string) ([]snstypes.Subscription, error) {
	var subs []snstypes.Subscription

	paginator := sns.NewListSubscriptionsByTopicPaginator(a.client(region), &sns.ListSubscriptionsByTopicInput{
		TopicArn: aws.String(topicARN),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions for %s in %s: %w", topicARN, region, err)
		}
		subs = append(subs, page.Subscriptions...)
	}
	return subs, nil
}

// SubscriptionAttributes fetches a subscription's attribute map.
func (a *SNSAccessor) SubscriptionAttributes(ctx context.Context, subscriptionARN, region string) (map[string]string, error) {
	out, err := a.client(region).GetSubscriptionAttributes(ctx, &sns.GetSubscriptionAttributesInput{
		SubscriptionArn: aws.String(subscriptionARN),
	})
	if err != nil {
		return nil, fmt.Errorf("get subscription attributes %s in %s: %w", subscriptionARN, region, err)
	}
	return out.Attributes, nil
}
