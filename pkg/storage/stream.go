package storage

import (
	"context"
	"errors"
	"io"
	"iter"
)

// DefaultChunkSize is used by Stream when chunkSize is not positive.
const DefaultChunkSize = 64 << 10

// Stream opens a blob and returns a lazy sequence of content chunks.
// Each chunk is read only when the consumer asks for it, and the underlying
// reader is closed when iteration ends, fails, or ctx is cancelled.
// Chunks are reused between iterations; consumers must not retain them.
// The sequence must be ranged over, even partially, to release the reader.
func Stream(ctx context.Context, sys System, id string, chunkSize int) (iter.Seq2[[]byte, error], Blob, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	rc, blob, err := sys.Open(ctx, id)
	if err != nil {
		return nil, Blob{}, err
	}

	seq := func(yield func([]byte, error) bool) {
		defer rc.Close()

		buf := make([]byte, chunkSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			n, err := io.ReadFull(rc, buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}

			switch {
			case err == nil:
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			default:
				yield(nil, err)
				return
			}
		}
	}

	return seq, blob, nil
}
