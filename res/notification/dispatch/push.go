package dispatch

import (
	"context"
	"fmt"
	"log"

	pubnub "github.com/pubnub/go/v7"
)

// pubnubPusher publishes booking events to a per-user PubNub channel
type pubnubPusher struct {
	pn     *pubnub.PubNub
	logger *log.Logger
}

// NewPusher creates a PubNub-backed Pusher
func NewPusher(publishKey, subscribeKey string, logger *log.Logger) Pusher {
	config := pubnub.NewConfigWithUserId(pubnub.UserId("maidconnect-api"))
	config.PublishKey = publishKey
	config.SubscribeKey = subscribeKey

	return &pubnubPusher{
		pn:     pubnub.NewPubNub(config),
		logger: logger,
	}
}

func (p *pubnubPusher) Push(ctx context.Context, userID string, message map[string]interface{}) error {
	channel := fmt.Sprintf("user-%s", userID)

	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return fmt.Errorf("pubnub publish to %s failed: %w", channel, err)
	}
	return nil
}
