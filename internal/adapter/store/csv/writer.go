package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"go.ngs.io/gridprofiles/internal/domain"
)

// TimestampLayout is the ts column format.
const TimestampLayout = "2006-01-02 15:04:05"

// Column orders of the profile tables.
var (
	WindHeader  = []string{"plant_id", "ts", "ts_id", "U", "V", "Pout"}
	SolarHeader = []string{"Pout", "plant_id", "ts", "ts_id"}
)

// Writer writes profile tables as CSV files.
type Writer struct{}

// NewWriter creates a CSV profile writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Ext returns "csv".
func (w *Writer) Ext() string {
	return "csv"
}

// WriteWind writes a wind profile to path.
func (w *Writer) WriteWind(path string, rows []domain.WindRow) error {
	return writeFile(path, func(out io.Writer) error {
		return EncodeWind(out, rows)
	})
}

// WriteSolar writes a solar profile to path.
func (w *Writer) WriteSolar(path string, rows []domain.SolarRow) error {
	return writeFile(path, func(out io.Writer) error {
		return EncodeSolar(out, rows)
	})
}

// WriteMissing writes one URL per line.
func WriteMissing(path string, urls []string) error {
	return writeFile(path, func(out io.Writer) error {
		for _, u := range urls {
			if _, err := fmt.Fprintln(out, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// EncodeWind writes the wind table, header included.
func EncodeWind(out io.Writer, rows []domain.WindRow) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(WindHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(int64(r.PlantID), 10),
			r.Time.UTC().Format(TimestampLayout),
			strconv.FormatInt(int64(r.TSID), 10),
			formatFloat(r.U),
			formatFloat(r.V),
			formatFloat(r.Pout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row (plant %d, ts_id %d): %w", r.PlantID, r.TSID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeSolar writes the solar table, header included.
func EncodeSolar(out io.Writer, rows []domain.SolarRow) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(SolarHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			formatFloat(r.Pout),
			strconv.FormatInt(int64(r.PlantID), 10),
			r.Time.UTC().Format(TimestampLayout),
			strconv.FormatInt(int64(r.TSID), 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row (plant %d, ts_id %d): %w", r.PlantID, r.TSID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat renders float32 values; NaN is written as "NaN".
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func writeFile(path string, encode func(io.Writer) error) (err error) {
	//nolint:gosec // G304: Output path is built from the configured output directory.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()

	bw := bufio.NewWriter(f)
	var result *multierror.Error
	if err := encode(bw); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to encode %s: %w", path, err))
	}
	if err := bw.Flush(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to flush %s: %w", path, err))
	}
	return result.ErrorOrNil()
}
