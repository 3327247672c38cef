package encoder

import (
	"fmt"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      archive.FileFormat
	compression string
}

// NewFactory creates a new encoder factory.
func NewFactory(format archive.FileFormat, compression string) *Factory {
	return &Factory{
		format:      format,
		compression: compression,
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (archive.Encoder, error) {
	switch f.format {
	case archive.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case archive.FormatAvro:
		return NewAvroEncoder(f.compression)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", f.format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []archive.FileFormat {
	return []archive.FileFormat{
		archive.FormatParquet,
		archive.FormatAvro,
	}
}

// SupportedCompressions returns supported compression codecs for a format.
func SupportedCompressions(format archive.FileFormat) []string {
	switch format {
	case archive.FormatParquet:
		return []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	case archive.FormatAvro:
		return []string{"uncompressed", "gzip"}
	default:
		return []string{}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format archive.FileFormat) string {
	switch format {
	case archive.FormatParquet:
		return "snappy"
	case archive.FormatAvro:
		return "gzip"
	default:
		return "uncompressed"
	}
}
