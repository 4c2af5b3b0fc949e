package scanner

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Output formats for WriteResult
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// CSVHeader is the column list written once per CSV log
var CSVHeader = []string{"timestamp", "channel", "frequency_hz", "bandwidth_hz", "found", "locked", "strength", "cnr_db", "pre_bit_errors", "pre_bit_count", "error"}

// WriteResult appends one sweep to w. Text and CSV emit one line per
// channel; JSON emits the sweep as a single line.
func WriteResult(w io.Writer, r *ScanResult, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case FormatCSV:
		cw := csv.NewWriter(w)
		ts := r.Timestamp.Format(time.RFC3339)
		for _, c := range r.Channels {
			if err := cw.Write([]string{
				ts,
				c.Channel.Name,
				strconv.FormatUint(uint64(c.Channel.FrequencyHz), 10),
				strconv.FormatUint(uint64(c.Channel.BandwidthHz), 10),
				strconv.FormatBool(c.Found),
				strconv.FormatBool(c.Status.Locked),
				strconv.FormatInt(c.Status.Strength, 10),
				strconv.FormatFloat(c.Status.CNRdB(), 'f', 1, 64),
				strconv.FormatUint(uint64(c.Status.PreBitErrors), 10),
				strconv.FormatUint(uint64(c.Status.PreBitCount), 10),
				c.Err,
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	case FormatText, "":
		for _, c := range r.Channels {
			state := "-"
			switch {
			case c.Found:
				state = "FOUND"
			case c.Status.Locked:
				state = "weak"
			case c.Err != "":
				state = "error"
			}
			if _, err := fmt.Fprintf(w, "%-8s %10.3f MHz  %-5s  strength %6d  CNR %5.1f dB\n",
				c.Channel.Name, float64(c.Channel.FrequencyHz)/1e6, state, c.Status.Strength, c.Status.CNRdB()); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteCSVHeader writes the CSV column names
func WriteCSVHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
