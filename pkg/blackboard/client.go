package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new blackboard client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(url, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewClient(opts, instanceName)
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client writes under.
func (c *Client) InstanceName() string { return c.instanceName }

// SaveRun writes the run and every channel result in one transaction, indexes
// the run by start time and topic, then publishes a run event.
// Saving the same run twice overwrites it.
func (c *Client) SaveRun(ctx context.Context, record *content.RunRecord) error {
	run := RunFromRecord(record)
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	runHash, err := RunToHash(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	channelHashes := make(map[string]map[string]interface{}, len(record.Results))
	for ch, r := range record.Results {
		hash, err := ChannelResultToHash(run.ID, r)
		if err != nil {
			return fmt.Errorf("failed to serialize %s result: %w", ch, err)
		}
		channelHashes[ChannelResultKey(c.instanceName, run.ID, string(ch))] = hash
	}

	score := IndexScore(run.StartedAt())
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, RunKey(c.instanceName, run.ID), runHash)
		for key, hash := range channelHashes {
			pipe.HSet(ctx, key, hash)
		}
		pipe.ZAdd(ctx, RunIndexKey(c.instanceName), redis.Z{Score: score, Member: run.ID})
		pipe.ZAdd(ctx, TopicRunsKey(c.instanceName, run.Topic), redis.Z{Score: score, Member: run.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write run to Redis: %w", err)
	}

	event := &RunEvent{
		RunID:       run.ID,
		ThreadID:    run.ThreadID,
		Topic:       run.Topic,
		Status:      run.Status,
		Summary:     run.Summary,
		Errors:      len(run.Errors),
		TimestampMs: time.Now().UnixMilli(),
	}
	return c.publish(ctx, RunEventsChannel(c.instanceName), event)
}

// SaveChannelResult writes one channel result and publishes a channel event.
// Used while a run is in flight; SaveRun later rewrites the same key.
func (c *Client) SaveChannelResult(ctx context.Context, runID string, r *content.ChannelResult) error {
	if !isValidUUID(runID) {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}
	if !r.Channel.Valid() {
		return fmt.Errorf("invalid channel: %q", r.Channel)
	}

	hash, err := ChannelResultToHash(runID, r)
	if err != nil {
		return fmt.Errorf("failed to serialize channel result: %w", err)
	}

	key := ChannelResultKey(c.instanceName, runID, string(r.Channel))
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write channel result to Redis: %w", err)
	}

	return c.publish(ctx, ChannelEventsChannel(c.instanceName), NewChannelEvent(runID, r))
}

func (c *Client) publish(ctx context.Context, channel string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
// Returns (nil, redis.Nil) if the run doesn't exist. Use IsNotFound() to check.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	hashData, err := c.rdb.HGetAll(ctx, RunKey(c.instanceName, runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	run, err := HashToRun(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}
	return run, nil
}

// RunExists checks if a run exists without fetching it.
func (c *Client) RunExists(ctx context.Context, runID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, RunKey(c.instanceName, runID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check run existence: %w", err)
	}
	return exists > 0, nil
}

// GetChannelResult retrieves one channel result of a run.
// Returns (nil, redis.Nil) if it doesn't exist.
func (c *Client) GetChannelResult(ctx context.Context, runID string, ch content.Channel) (*content.ChannelResult, error) {
	key := ChannelResultKey(c.instanceName, runID, string(ch))
	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel result from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	r, err := HashToChannelResult(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize channel result: %w", err)
	}
	return r, nil
}

// GetChannelResults retrieves every stored result of a run in channel order.
// Channels that never reported are omitted.
func (c *Client) GetChannelResults(ctx context.Context, run *Run) ([]*content.ChannelResult, error) {
	results := make([]*content.ChannelResult, 0, len(run.Channels))
	for _, ch := range run.Channels {
		r, err := c.GetChannelResult(ctx, run.ID, ch)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		results = append(results, r)
	}
	content.SortResults(results)
	return results, nil
}

// ListRunIDs returns run IDs ordered oldest first. Zero bounds are open.
func (c *Client) ListRunIDs(ctx context.Context, sinceMs, untilMs int64) ([]string, error) {
	return c.rangeIndex(ctx, RunIndexKey(c.instanceName), sinceMs, untilMs)
}

// ListTopicRunIDs returns the run IDs of one topic, oldest first.
func (c *Client) ListTopicRunIDs(ctx context.Context, topic string, sinceMs, untilMs int64) ([]string, error) {
	return c.rangeIndex(ctx, TopicRunsKey(c.instanceName, topic), sinceMs, untilMs)
}

func (c *Client) rangeIndex(ctx context.Context, key string, sinceMs, untilMs int64) ([]string, error) {
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if sinceMs > 0 {
		rng.Min = strconv.FormatInt(sinceMs, 10)
	}
	if untilMs > 0 {
		rng.Max = strconv.FormatInt(untilMs, 10)
	}

	ids, err := c.rdb.ZRangeByScore(ctx, key, rng).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}
	return ids, nil
}

// ScanRunIDs returns every indexed run ID starting with prefix.
func (c *Client) ScanRunIDs(ctx context.Context, prefix string) ([]string, error) {
	ids, err := c.ListRunIDs(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	return matches, nil
}

// ChannelSubscription represents an active Pub/Sub subscription to channel events.
// Caller must call Close() when done to clean up resources.
type ChannelSubscription struct {
	events <-chan *ChannelEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of channel events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *ChannelSubscription) Events() <-chan *ChannelEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - messages are skipped.
func (s *ChannelSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *ChannelSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// RunSubscription represents an active Pub/Sub subscription to run events.
type RunSubscription struct {
	events <-chan *RunEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of run events.
func (s *RunSubscription) Events() <-chan *RunEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *RunSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *RunSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChannelEvents subscribes to channel completion events for this instance.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub (at-most-once delivery).
func (c *Client) SubscribeChannelEvents(ctx context.Context) (*ChannelSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, ChannelEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel events: %w", err)
	}

	eventsChan := make(chan *ChannelEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event ChannelEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal channel event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &ChannelSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// SubscribeRunEvents subscribes to run completion events for this instance.
func (c *Client) SubscribeRunEvents(ctx context.Context) (*RunSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, RunEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	eventsChan := make(chan *RunEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event RunEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal run event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &RunSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
