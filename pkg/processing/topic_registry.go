package processing

import (
	"sync"

	"github.com/forcemove/controller/pkg/config"
	customlog "github.com/forcemove/controller/pkg/log"
)

// TopicInfo holds metadata and traffic counters for a topic
type TopicInfo struct {
	Topic        string
	MessageType  string
	Direction    string
	StatCount    int64
	LastReceived int64
}

// TopicRegistry maintains information about configured topics and their
// observed traffic. It feeds the diagnostics endpoint.
type TopicRegistry struct {
	logger customlog.Logger
	topics map[string]*TopicInfo
	mu     sync.RWMutex
}

// NewTopicRegistry creates a new topic registry
func NewTopicRegistry(logger customlog.Logger) *TopicRegistry {
	return &TopicRegistry{
		logger: logger,
		topics: make(map[string]*TopicInfo),
	}
}

// LoadFromConfig loads topic information from the operational config,
// replacing any previous registration.
func (r *TopicRegistry) LoadFromConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics = make(map[string]*TopicInfo)

	for _, topic := range cfg.Topics {
		direction := topic.Direction
		if direction == "" {
			direction = cfg.Defaults.Direction
		}

		r.topics[topic.Topic] = &TopicInfo{
			Topic:       topic.Topic,
			MessageType: topic.MessageType,
			Direction:   direction,
		}
	}

	r.logger.Infof("Topic registry loaded %d topics from config", len(r.topics))
}

// UpdateTopicStats records one observed message on a topic. Unknown
// topics are registered on first sight so traffic is never lost from the
// diagnostics view.
func (r *TopicRegistry) UpdateTopicStats(topic string, timestampNs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.topics[topic]
	if !exists {
		info = &TopicInfo{Topic: topic}
		r.topics[topic] = info
		r.logger.Debugf("Registering unconfigured topic '%s' on first message", topic)
	}

	info.StatCount++
	info.LastReceived = timestampNs
}

// GetTopicInfo returns a copy of the info for one topic.
func (r *TopicRegistry) GetTopicInfo(topic string) (TopicInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return TopicInfo{}, false
	}
	return *info, true
}

// Snapshot returns a copy of all known topic info, keyed by topic name.
func (r *TopicRegistry) Snapshot() map[string]TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]TopicInfo, len(r.topics))
	for name, info := range r.topics {
		snapshot[name] = *info
	}
	return snapshot
}
