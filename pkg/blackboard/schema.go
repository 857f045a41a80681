package blackboard

import "fmt"

// Redis key pattern helpers
//
// Key pattern: quill:{instance_name}:{entity}:{id}
// Channel pattern: quill:{instance_name}:{event_type}_events

// RunKey returns the Redis key for a run.
// Pattern: quill:{instance_name}:run:{run_id}
func RunKey(instanceName, runID string) string {
	return fmt.Sprintf("quill:%s:run:%s", instanceName, runID)
}

// RunKeyPrefix returns the prefix shared by every run key of an instance.
func RunKeyPrefix(instanceName string) string {
	return fmt.Sprintf("quill:%s:run:", instanceName)
}

// ChannelResultKey returns the Redis key for one channel result of a run.
// Pattern: quill:{instance_name}:run:{run_id}:channel:{channel}
func ChannelResultKey(instanceName, runID, channel string) string {
	return fmt.Sprintf("quill:%s:run:%s:channel:%s", instanceName, runID, channel)
}

// RunIndexKey returns the ZSET of all run IDs ordered by start time.
// Pattern: quill:{instance_name}:runs
func RunIndexKey(instanceName string) string {
	return fmt.Sprintf("quill:%s:runs", instanceName)
}

// TopicRunsKey returns the ZSET of run IDs for one topic.
// Pattern: quill:{instance_name}:topic:{topic}:runs
func TopicRunsKey(instanceName, topic string) string {
	return fmt.Sprintf("quill:%s:topic:%s:runs", instanceName, topic)
}

// ChannelEventsChannel returns the Pub/Sub channel for channel completion events.
// Pattern: quill:{instance_name}:channel_events
func ChannelEventsChannel(instanceName string) string {
	return fmt.Sprintf("quill:%s:channel_events", instanceName)
}

// RunEventsChannel returns the Pub/Sub channel for run completion events.
// Pattern: quill:{instance_name}:run_events
func RunEventsChannel(instanceName string) string {
	return fmt.Sprintf("quill:%s:run_events", instanceName)
}
