package kafka

import "time"

type Driver string

const (
	DriverNone  Driver = "none"
	DriverKafka Driver = "kafka"
)

type InvalidationConfig struct {
	Enabled bool
	Driver  Driver

	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool

	// DedupeSize bounds how many listings' versions are remembered.
	DedupeSize int
	// OpTimeout bounds the index and cache calls for one message.
	OpTimeout time.Duration
	// IndexTTL is used when taken index entries are put back after a
	// failed delete. Match it to the cache TTL.
	IndexTTL time.Duration
}

func (c InvalidationConfig) withDefaults() InvalidationConfig {
	if c.Driver == "" {
		c.Driver = DriverNone
	}
	if c.Topic == "" {
		c.Topic = "listing-changes"
	}
	if c.GroupID == "" {
		c.GroupID = "search-cache-invalidator"
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	if c.DedupeSize <= 0 {
		c.DedupeSize = 8192
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 2 * time.Second
	}
	if c.IndexTTL <= 0 {
		c.IndexTTL = 60 * time.Second
	}
	return c
}
