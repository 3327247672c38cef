// Package encoder implements file format encoders for archived events.
package encoder

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jittakal/kafeventsdk/pkg/archive"
	"github.com/jittakal/kafeventsdk/pkg/event"
)

// Payload encoding markers stored alongside the data column so readers
// can reverse the flattening.
const (
	dataEncodingJSON   = "json"
	dataEncodingBase64 = "base64"
	dataEncodingNone   = "none"
)

// flatRecord is the version-neutral row shape shared by the Avro and
// Parquet encoders. Both revisions' schema attributes collapse into one
// schema_uri column; extension attributes travel as one JSON object
// column so the storage schema stays fixed while extensions vary.
type flatRecord struct {
	SpecVersion string
	ID          string
	Source      string
	Type        string

	Subject             *string
	DataContentType     *string
	DataContentEncoding *string
	SchemaURI           *string
	Time                *time.Time

	Data         string
	DataEncoding string
	Extensions   *string

	KafkaTopic     string
	KafkaPartition int32
	KafkaOffset    int64
	KafkaTimestamp time.Time
	IngestedAt     time.Time
}

func flatten(record archive.Record) (*flatRecord, error) {
	e := record.Event
	if e == nil {
		return nil, fmt.Errorf("record has no event")
	}

	row := &flatRecord{
		SpecVersion:    string(e.SpecVersion()),
		ID:             e.ID(),
		Source:         e.Source().String(),
		Type:           e.Type(),
		KafkaTopic:     record.Kafka.Topic,
		KafkaPartition: record.Kafka.Partition,
		KafkaOffset:    record.Kafka.Offset,
		KafkaTimestamp: record.Kafka.Timestamp,
		IngestedAt:     record.ProcessedAt,
	}

	if s, ok := e.Subject(); ok {
		row.Subject = &s
	}
	if ct, ok := e.DataContentType(); ok {
		row.DataContentType = &ct
	}
	if enc, ok := e.DataContentEncoding(); ok {
		row.DataContentEncoding = &enc
	}
	if u, ok := e.DataSchema(); ok {
		s := u.String()
		row.SchemaURI = &s
	}
	if u, ok := e.SchemaURL(); ok {
		s := u.String()
		row.SchemaURI = &s
	}
	if t, ok := e.Time(); ok {
		row.Time = &t
	}

	switch data := e.Data(); data.Kind() {
	case event.DataJSON:
		row.Data = string(data.Bytes())
		row.DataEncoding = dataEncodingJSON
	case event.DataBinary:
		row.Data = base64.StdEncoding.EncodeToString(data.Bytes())
		row.DataEncoding = dataEncodingBase64
	default:
		row.DataEncoding = dataEncodingNone
	}

	if exts := e.Extensions(); len(exts) > 0 {
		encoded, err := json.Marshal(exts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extensions: %w", err)
		}
		s := string(encoded)
		row.Extensions = &s
	}

	return row, nil
}
