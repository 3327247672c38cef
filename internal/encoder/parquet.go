package encoder

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Encoder = (*ParquetEncoder)(nil)

// ArchivedEventParquet is the Parquet schema for archived events.
// Uses native Parquet types for Athena compatibility, including
// TIMESTAMP_MICROS for time fields.
type ArchivedEventParquet struct {
	SpecVersion string `parquet:"spec_version,dict"`
	ID          string `parquet:"id,dict"`
	Source      string `parquet:"source,dict"`
	Type        string `parquet:"type,dict"`

	// Optional attributes use pointers for proper NULL handling.
	Subject             *string    `parquet:"subject,dict,optional"`
	DataContentType     *string    `parquet:"data_content_type,dict,optional"`
	DataContentEncoding *string    `parquet:"data_content_encoding,dict,optional"`
	SchemaURI           *string    `parquet:"schema_uri,dict,optional"`
	Time                *time.Time `parquet:"time,timestamp(microsecond),optional"`

	Data         string  `parquet:"data"`
	DataEncoding string  `parquet:"data_encoding,dict"`
	Extensions   *string `parquet:"extensions,optional"`

	KafkaTopic     string    `parquet:"kafka_topic,dict"`
	KafkaPartition int32     `parquet:"kafka_partition"`
	KafkaOffset    int64     `parquet:"kafka_offset"`
	KafkaTimestamp time.Time `parquet:"kafka_timestamp,timestamp(microsecond)"`

	IngestedAt time.Time `parquet:"ingested_at,timestamp(microsecond)"`
}

// ParquetEncoder implements archive.Encoder for Apache Parquet columnar
// format with Hive-compatible metadata. Supports SNAPPY (default), GZIP,
// LZ4 and ZSTD compression.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts a compression name to a parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Encode writes records to a Parquet file.
func (e *ParquetEncoder) Encode(filePath string, records []archive.Record) (*archive.FileStats, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	parquetRecords := make([]ArchivedEventParquet, len(records))
	for i, record := range records {
		parquetRec, err := convertToParquetRecord(record)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to convert record %d: %w", i, err)
		}
		parquetRecords[i] = *parquetRec
	}

	schema := parquet.SchemaOf(new(ArchivedEventParquet))

	writer := parquet.NewGenericWriter[ArchivedEventParquet](
		file,
		schema,
		compressionCodec(e.compressionName),
		parquet.CreatedBy("kafeventsdk", "1.0", "0"),
	)

	if _, err := writer.Write(parquetRecords); err != nil {
		writer.Close()
		file.Close()
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to close writer: %w", err)
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

// convertToParquetRecord flattens a record into the Parquet row shape.
func convertToParquetRecord(record archive.Record) (*ArchivedEventParquet, error) {
	row, err := flatten(record)
	if err != nil {
		return nil, err
	}

	return &ArchivedEventParquet{
		SpecVersion:         row.SpecVersion,
		ID:                  row.ID,
		Source:              row.Source,
		Type:                row.Type,
		Subject:             row.Subject,
		DataContentType:     row.DataContentType,
		DataContentEncoding: row.DataContentEncoding,
		SchemaURI:           row.SchemaURI,
		Time:                row.Time,
		Data:                row.Data,
		DataEncoding:        row.DataEncoding,
		Extensions:          row.Extensions,
		KafkaTopic:          row.KafkaTopic,
		KafkaPartition:      row.KafkaPartition,
		KafkaOffset:         row.KafkaOffset,
		KafkaTimestamp:      row.KafkaTimestamp,
		IngestedAt:          row.IngestedAt,
	}, nil
}

// Format returns the file format.
func (e *ParquetEncoder) Format() archive.FileFormat {
	return archive.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
