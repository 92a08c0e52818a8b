// Package export renders sensor readings as CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"vayu-server/internal/modules/sensor/types"
)

var header = []string{"Timestamp", "Temperature (C)", "Humidity (%)", "Air Quality (V)", "Air Quality Level"}

// Filename builds the attachment name for an export covering [start, end].
func Filename(start, end time.Time) string {
	return fmt.Sprintf("vayu_data_%s_%s.csv", start.UTC().Format("20060102"), end.UTC().Format("20060102"))
}

// WriteCSV writes readings oldest-first with a header row. The input is
// expected newest-first, as the repository returns it.
func WriteCSV(w io.Writer, readings []types.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := len(readings) - 1; i >= 0; i-- {
		r := readings[i]
		record := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			strconv.FormatFloat(r.Humidity, 'f', -1, 64),
			strconv.FormatFloat(r.AirQualityVoltage, 'f', -1, 64),
			r.AirQualityLevel,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
