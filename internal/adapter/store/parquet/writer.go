// Package parquet writes profile tables as Parquet files.
package parquet

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"go.ngs.io/gridprofiles/internal/domain"
)

// WindRecord is the Parquet layout of a wind row.
type WindRecord struct {
	PlantID int32   `parquet:"name=plant_id,type=INT32"`
	Ts      int64   `parquet:"name=ts,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	TSID    int32   `parquet:"name=ts_id,type=INT32"`
	U       float32 `parquet:"name=U,type=FLOAT"`
	V       float32 `parquet:"name=V,type=FLOAT"`
	Pout    float32 `parquet:"name=Pout,type=FLOAT"`
}

// SolarRecord is the Parquet layout of a solar row.
type SolarRecord struct {
	Pout    float32 `parquet:"name=Pout,type=FLOAT"`
	PlantID int32   `parquet:"name=plant_id,type=INT32"`
	Ts      int64   `parquet:"name=ts,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	TSID    int32   `parquet:"name=ts_id,type=INT32"`
}

// Writer writes SNAPPY-compressed Parquet files.
type Writer struct {
	compression parquet.CompressionCodec
}

// NewWriter creates a Parquet profile writer.
func NewWriter() *Writer {
	return &Writer{compression: parquet.CompressionCodec_SNAPPY}
}

// Ext returns "parquet".
func (w *Writer) Ext() string {
	return "parquet"
}

// WriteWind writes a wind profile to path.
func (w *Writer) WriteWind(path string, rows []domain.WindRow) error {
	records := make([]any, len(rows))
	for i, r := range rows {
		records[i] = WindRecord{
			PlantID: r.PlantID,
			Ts:      r.Time.UnixMilli(),
			TSID:    r.TSID,
			U:       r.U,
			V:       r.V,
			Pout:    r.Pout,
		}
	}
	return w.write(path, new(WindRecord), records)
}

// WriteSolar writes a solar profile to path.
func (w *Writer) WriteSolar(path string, rows []domain.SolarRow) error {
	records := make([]any, len(rows))
	for i, r := range rows {
		records[i] = SolarRecord{
			Pout:    r.Pout,
			PlantID: r.PlantID,
			Ts:      r.Time.UnixMilli(),
			TSID:    r.TSID,
		}
	}
	return w.write(path, new(SolarRecord), records)
}

func (w *Writer) write(path string, prototype any, records []any) error {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, prototype, 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer for %s: %w", path, err)
	}
	pw.CompressionType = w.compression

	var result *multierror.Error
	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			result = multierror.Append(result, err)
			break
		}
	}

	// WriteStop can panic on corrupted state.
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = multierror.Append(result, fmt.Errorf("parquet writer panicked: %v", r))
			}
		}()
		if err := pw.WriteStop(); err != nil {
			result = multierror.Append(result, err)
		}
	}()
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: Output files are meant to be shared.
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
