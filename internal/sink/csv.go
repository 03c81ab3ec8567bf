package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/avdeenkov/catalog-harvester/internal/record"
)

// CSVSink streams flat product rows into a file, one row per record.
// Every write is flushed so a crash loses at most the in-flight row.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates (or truncates) path and writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(record.Headers()); err != nil {
		file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	return &CSVSink{file: file, writer: writer}, nil
}

func (s *CSVSink) WriteRecord(ctx context.Context, p record.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writer.Write(p.FlatRow()); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush csv row: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
