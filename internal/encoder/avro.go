package encoder

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Encoder = (*AvroEncoder)(nil)

// AvroEncoder implements archive.Encoder for Apache Avro binary format.
// It supports optional gzip compression and produces OCF (Object
// Container File) output compatible with Apache Spark and other Avro
// readers.
type AvroEncoder struct {
	codec       *goavro.Codec
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	codec, err := goavro.NewCodec(avroSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	return &AvroEncoder{
		codec:       codec,
		compression: compression,
	}, nil
}

// avroSchema returns the Avro schema for archived event rows.
func avroSchema() string {
	return `{
		"type": "record",
		"name": "ArchivedEvent",
		"namespace": "com.jittakal.kafeventsdk",
		"fields": [
			{"name": "spec_version", "type": "string"},
			{"name": "id", "type": "string"},
			{"name": "source", "type": "string"},
			{"name": "type", "type": "string"},
			{"name": "subject", "type": ["null", "string"], "default": null},
			{"name": "data_content_type", "type": ["null", "string"], "default": null},
			{"name": "data_content_encoding", "type": ["null", "string"], "default": null},
			{"name": "schema_uri", "type": ["null", "string"], "default": null},
			{"name": "time", "type": ["null", "string"], "default": null},
			{"name": "data", "type": "string"},
			{"name": "data_encoding", "type": "string"},
			{"name": "extensions", "type": ["null", "string"], "default": null},
			{"name": "kafka_topic", "type": "string"},
			{"name": "kafka_partition", "type": "int"},
			{"name": "kafka_offset", "type": "long"},
			{"name": "kafka_timestamp", "type": "string"},
			{"name": "ingested_at", "type": "string"}
		]
	}`
}

// Encode writes records to an Avro file.
func (e *AvroEncoder) Encode(filePath string, records []archive.Record) (*archive.FileStats, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file
	var gzipWriter *gzip.Writer

	if e.gzipped() {
		gzipWriter = gzip.NewWriter(file)
		writer = gzipWriter
		defer gzipWriter.Close()
	}

	if err := e.writeOCF(writer, records); err != nil {
		return nil, err
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &archive.FileStats{
		RecordCount:    len(records),
		SizeBytes:      fileInfo.Size(),
		FirstWriteTime: time.Now(),
		LastWriteTime:  time.Now(),
	}, nil
}

// EncodeToBytes encodes records to bytes (useful for testing).
func (e *AvroEncoder) EncodeToBytes(records []archive.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	var buf bytes.Buffer
	var writer io.Writer = &buf

	var gzipWriter *gzip.Writer
	if e.gzipped() {
		gzipWriter = gzip.NewWriter(&buf)
		writer = gzipWriter
	}

	if err := e.writeOCF(writer, records); err != nil {
		return nil, err
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}

	return buf.Bytes(), nil
}

func (e *AvroEncoder) writeOCF(w io.Writer, records []archive.Record) error {
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     w,
		Codec: e.codec,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCF writer: %w", err)
	}

	for _, record := range records {
		avroMap, err := convertToAvroMap(record)
		if err != nil {
			return fmt.Errorf("failed to convert record: %w", err)
		}
		if err := ocfWriter.Append([]interface{}{avroMap}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// convertToAvroMap flattens a record into its Avro map representation.
func convertToAvroMap(record archive.Record) (map[string]interface{}, error) {
	row, err := flatten(record)
	if err != nil {
		return nil, err
	}

	avroMap := map[string]interface{}{
		"spec_version":    row.SpecVersion,
		"id":              row.ID,
		"source":          row.Source,
		"type":            row.Type,
		"data":            row.Data,
		"data_encoding":   row.DataEncoding,
		"kafka_topic":     row.KafkaTopic,
		"kafka_partition": row.KafkaPartition,
		"kafka_offset":    row.KafkaOffset,
		"kafka_timestamp": row.KafkaTimestamp.Format(time.RFC3339Nano),
		"ingested_at":     row.IngestedAt.Format(time.RFC3339Nano),
	}

	avroMap["subject"] = nullableString(row.Subject)
	avroMap["data_content_type"] = nullableString(row.DataContentType)
	avroMap["data_content_encoding"] = nullableString(row.DataContentEncoding)
	avroMap["schema_uri"] = nullableString(row.SchemaURI)
	avroMap["extensions"] = nullableString(row.Extensions)

	if row.Time != nil {
		avroMap["time"] = goavro.Union("string", row.Time.Format(time.RFC3339Nano))
	} else {
		avroMap["time"] = nil
	}

	return avroMap, nil
}

func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return goavro.Union("string", *s)
}

func (e *AvroEncoder) gzipped() bool {
	return e.compression == "gzip" || e.compression == "GZIP"
}

// Format returns the file format.
func (e *AvroEncoder) Format() archive.FileFormat {
	return archive.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	if e.gzipped() {
		return ".avro.gz"
	}
	return ".avro"
}
