// Package event defines the engine's notification vocabulary and the bus
// that delivers it.
//
// The vocabulary is closed: Kind has exactly seven values and Publish
// rejects anything else. Every published event is stamped with a strictly
// increasing sequence number from a logical Clock, never a wall-clock time,
// so two runs over the same inputs produce identical streams.
//
// Delivery never blocks the publisher. Publishing happens inside a tick
// while the kernel holds its lock, so a subscriber that falls behind loses
// events (counted by Subscription.Dropped) instead of stalling the clock.
package event
