package revalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is the message published for every invalidated path.
type Event struct {
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// Publisher announces invalidated paths on a Redis channel so every web host
// instance can drop its own copy of the route.
type Publisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel, now: time.Now}
}

func (p *Publisher) Invalidate(ctx context.Context, path string) error {
	b, err := json.Marshal(Event{Path: path, At: p.now().UTC()})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("publish revalidation of %s: %w", path, err)
	}
	return nil
}

// Subscribe calls fn for every event on channel until ctx is done.
// Messages that do not decode are skipped.
func Subscribe(ctx context.Context, client *redis.Client, channel string, fn func(Event)) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			fn(ev)
		}
	}
}
