package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "proj"}

	assert.Equal(t, "projects/proj/topics/orders", c.topicResourceName(" orders "))
	assert.Equal(t, "projects/proj/subscriptions/orders-analytics", c.subscriptionResourceName("orders-analytics"))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Empty(t, c.topicResourceName(""))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("orders"))
	assert.Empty(t, (&Client{}).subscriptionResourceName("orders"))
}

func TestConfiguredNamesSkipBlanksAndDuplicates(t *testing.T) {
	cfg := config.PubSubConfig{
		OrdersTopic:         "ledger",
		PayoutsTopic:        " ledger ",
		OrdersSubscription:  "orders-analytics",
		PayoutsSubscription: " ",
	}

	assert.Equal(t, []string{"ledger"}, TopicNames(cfg))
	assert.Equal(t, []string{"orders-analytics"}, SubscriptionNames(cfg))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "publish", ModePublish.String())
	assert.Equal(t, "subscribe", ModeSubscribe.String())
}
