// Package transfer streams an HTTP response body into a local file.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"vidgrab/internal/httpclient"
	"vidgrab/internal/logging"
	"vidgrab/internal/progress"
)

const DefaultChunkSize = 128 * 1024

var ErrTransferFailed = errors.New("transfer failed")

// Plan describes where a stream goes and how large it is expected to be.
type Plan struct {
	Filename      string
	ExpectedBytes int64 // 0 when the server did not announce a size
}

// ExpectedSize reads Content-Length. Absent, unparseable or negative values
// yield 0.
func ExpectedSize(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type Engine struct {
	Client    httpclient.Getter
	ChunkSize int
}

func New(client httpclient.Getter, chunkSize int) *Engine {
	return &Engine{Client: client, ChunkSize: chunkSize}
}

// Transfer downloads url into dest, truncating any existing file. It returns
// the number of bytes written. On failure the partial file stays on disk.
func (e *Engine) Transfer(ctx context.Context, url, dest string, sink progress.Sink) (int64, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	log := logging.Component("transfer")
	resp, err := e.Client.Get(ctx, url)
	if err != nil {
		sink.Finish(err)
		return 0, err
	}
	defer resp.Body.Close()

	plan := Plan{Filename: dest, ExpectedBytes: ExpectedSize(resp.Header)}
	log.Debug().Str("dest", plan.Filename).Int64("expected", plan.ExpectedBytes).Msg("starting transfer")

	out, err := os.OpenFile(plan.Filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		err = fmt.Errorf("%w: create %s: %w", ErrTransferFailed, plan.Filename, err)
		sink.Finish(err)
		return 0, err
	}

	sink.Start(plan.ExpectedBytes)
	written, err := e.copy(out, resp.Body, sink)
	if err == nil {
		if serr := out.Sync(); serr != nil {
			err = fmt.Errorf("%w: sync: %w", ErrTransferFailed, serr)
		}
	}
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: close: %w", ErrTransferFailed, cerr)
	}
	sink.Finish(err)
	if err != nil {
		log.Debug().Int64("written", written).Err(err).Msg("transfer aborted")
		return written, err
	}
	if plan.ExpectedBytes > 0 && written != plan.ExpectedBytes {
		log.Warn().Int64("expected", plan.ExpectedBytes).Int64("written", written).Msg("size mismatch")
	}
	log.Debug().Int64("written", written).Msg("transfer completed")
	return written, nil
}

func (e *Engine) copy(dst io.Writer, src io.Reader, sink progress.Sink) (int64, error) {
	size := e.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("%w: write: %w", ErrTransferFailed, werr)
			}
			total += int64(n)
			sink.Advance(int64(n))
		}
		if rerr != nil {
			if rerr == io.EOF {
				return total, nil
			}
			return total, fmt.Errorf("%w: read: %w", ErrTransferFailed, rerr)
		}
	}
}
