package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	SessionID string
	Field     string
	WriteID   string
	TimeStart string
	TimeEnd   string
	Source    string
	Category  string
}

// RunFilter filters the trace file and writes matching events to a new file.
// It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter := log.Filter{
		SessionID: opts.SessionID,
		WriteID:   opts.WriteID,
	}

	if opts.Field != "" {
		key, err := ParseFieldFlag(opts.Field)
		if err != nil {
			return 0, err
		}
		filter.Field = key
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return 0, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return 0, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Source != "" {
		s, err := ParseSourceFlag(opts.Source)
		if err != nil {
			return 0, err
		}
		filter.Source = &s
	}

	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return 0, err
		}
		filter.Category = &c
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}
	return count, nil
}
