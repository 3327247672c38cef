// Package kafka binds events to Sarama producer and consumer messages.
//
// Binary mode maps attributes and extensions to record headers under the
// ce_ prefix, carries datacontenttype in the content-type header and the
// payload as the record value. Structured mode puts the whole JSON
// document in the value with content-type application/cloudevents+json.
// The record key is always the event id, so Kafka's default partitioner
// keeps one event stream ordered per id.
package kafka
