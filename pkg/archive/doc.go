// Package archive defines the contracts of the event archival pipeline:
// consuming events from Kafka, buffering them per partition, encoding
// batches to columnar files and writing those to object storage.
//
// Implementations live under internal/; this package only carries the
// types the pipeline stages exchange and the interfaces they implement,
// so stages stay swappable in tests and in the archiver wiring.
package archive
