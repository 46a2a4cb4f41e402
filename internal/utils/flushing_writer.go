package utils

import (
	"io"
	"sync"
)

type flushable interface{ Flush() error }

// FlushingWriter forwards writes to an underlying writer and flushes it after
// every write so interactive output never sits in a buffer.
type FlushingWriter struct {
	destination io.Writer
	writeGuard  sync.Mutex
}

// NewFlushingWriter wraps destination in a FlushingWriter. A destination that
// already flushes per write is returned as is, and a nil destination yields nil.
func NewFlushingWriter(destination io.Writer) io.Writer {
	switch typedDestination := destination.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return typedDestination
	default:
		return &FlushingWriter{destination: destination}
	}
}

// Write sends data to the destination and flushes when the destination supports it.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	if writer == nil || writer.destination == nil {
		return 0, nil
	}

	writer.writeGuard.Lock()
	defer writer.writeGuard.Unlock()

	writtenByteCount, writeError := writer.destination.Write(data)
	if writeError != nil {
		return writtenByteCount, writeError
	}
	if flushableDestination, supportsFlush := writer.destination.(flushable); supportsFlush {
		return writtenByteCount, flushableDestination.Flush()
	}
	return writtenByteCount, nil
}
