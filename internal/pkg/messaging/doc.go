// Package messaging provides a broker-agnostic API for publishing messages.
//
// Business code depends on Publisher and stays independent from the broker
// (Kafka, NATS, NSQ, Google Pub/Sub) selected in configuration.
package messaging
