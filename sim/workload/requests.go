package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// CSV column headers for request trace files.
var requestColumns = []string{"time", "receiver", "content", "log"}

// ExportRequests writes events to a CSV request trace.
// Times use the shortest exact float formatting so a reloaded trace replays identically.
func ExportRequests(events []Event, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating request trace: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(requestColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, e := range events {
		row := []string{
			strconv.FormatFloat(e.Time, 'g', -1, 64),
			string(e.Receiver),
			strconv.Itoa(int(e.Content)),
			strconv.FormatBool(e.Log),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing request trace: %w", err)
	}
	return nil
}

// LoadRequests reads a CSV request trace written by ExportRequests.
func LoadRequests(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening request trace: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(requestColumns)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var events []Event
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		e, err := parseRequest(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidWorkload, line, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func parseRequest(row []string) (Event, error) {
	t, err := strconv.ParseFloat(row[0], 64)
	if err != nil {
		return Event{}, fmt.Errorf("time %q: %v", row[0], err)
	}
	content, err := strconv.Atoi(row[2])
	if err != nil {
		return Event{}, fmt.Errorf("content %q: %v", row[2], err)
	}
	log, err := strconv.ParseBool(row[3])
	if err != nil {
		return Event{}, fmt.Errorf("log %q: %v", row[3], err)
	}
	return Event{
		Time:     t,
		Receiver: topology.NodeID(row[1]),
		Content:  topology.ContentID(content),
		Log:      log,
	}, nil
}
