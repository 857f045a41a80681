// Package blackboard stores quill runs and channel results in Redis and
// publishes progress events, so that `quill hoard` and `quill watch` can
// inspect work done by any process sharing the same Redis.
//
// # Redis Schema
//
// All keys are namespaced by instance name so several quill deployments can
// share one Redis server without interference.
//
// Runs: quill:{instance}:run:{run_id} (hash)
// Channel results: quill:{instance}:run:{run_id}:channel:{channel} (hash)
// Run index: quill:{instance}:runs (ZSET, score = started_at_ms)
// Topic index: quill:{instance}:topic:{topic}:runs (ZSET, score = started_at_ms)
//
// Pub/Sub channels: quill:{instance}:{event_type}_events
//
// Channel events: quill:{instance}:channel_events
// Run events: quill:{instance}:run_events
//
// # Usage Example
//
//	client, err := blackboard.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Persist a finished run and every channel result
//	if err := client.SaveRun(ctx, record); err != nil {
//		log.Fatal(err)
//	}
//
//	// Stream channel completions
//	sub, err := client.SubscribeChannelEvents(ctx)
//	...
//	for ev := range sub.Events() {
//		fmt.Println(ev.Channel, ev.Score)
//	}
package blackboard
