// Package sink persists finished product records. Sinks are written to
// by exactly one goroutine; implementations do not need to be
// concurrency safe.
package sink

import (
	"context"

	"github.com/avdeenkov/catalog-harvester/internal/record"
)

// RecordSink receives records one at a time as the harvest produces
// them and must persist incrementally, so an interrupted run keeps what
// it already wrote.
type RecordSink interface {
	WriteRecord(ctx context.Context, p record.Product) error
	Close() error
}
