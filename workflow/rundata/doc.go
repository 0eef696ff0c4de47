// Package rundata records the input, output and AI-event data a node
// produces during an execution. MemoryStore, RedisStore and SQLStore share
// the Store contract; Open picks one from config.RunDataConfig.
package rundata
