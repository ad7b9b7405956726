package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
)

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "source", "category", "type", "field", "write_id", "target", "canonical", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var target, canonical, detail string
		switch {
		case event.Write != nil:
			if event.Write.Target != nil {
				target = field.Format(event.Write.Target)
			}
			canonical = field.Format(event.Write.Canonical)
			detail = event.Write.Reason
		case event.Connection != nil:
			detail = event.Connection.Reason
		case event.Error != nil:
			detail = event.Error.Message
		case event.Snapshot != nil:
			detail = fmt.Sprintf("%d values", len(event.Snapshot.Values))
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			event.SessionID,
			event.Source.String(),
			event.Category.String(),
			eventLabel(event),
			event.Field,
			event.WriteID,
			target,
			canonical,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
