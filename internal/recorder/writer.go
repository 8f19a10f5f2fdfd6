package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueFull       = errors.New("capture queue full")
	ErrClosed          = errors.New("capture writer closed")
	ErrNotStarted      = errors.New("capture writer not started")
	ErrAlreadyStarted  = errors.New("capture writer already started")
	ErrPayloadTooLarge = errors.New("capture payload too large")
)

const maxPayloadLen = uint64(^uint32(0))

const (
	defaultQueueSize  = 4096
	defaultBufferSize = 256 * 1024
	defaultFilePrefix = "feed"
)

// Config controls capture writer behavior.
type Config struct {
	Dir           string
	FilePrefix    string
	QueueSize     int
	BufferSize    int
	FlushInterval time.Duration
}

// DefaultConfig returns a baseline configuration for a capture.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:        dir,
		FilePrefix: defaultFilePrefix,
		QueueSize:  defaultQueueSize,
		BufferSize: defaultBufferSize,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid capture config: Dir is empty")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("invalid capture config: FlushInterval must be >= 0")
	}
	return nil
}

// Writer appends raw feed frames to a capture file from a buffered
// queue, so recording never blocks the ingestion path.
type Writer struct {
	cfg Config
	ch  chan frameRequest
	wg  sync.WaitGroup
	err atomic.Value
	seq atomic.Uint64

	started uint32
	closed  uint32
}

type frameRequest struct {
	header  FrameHeader
	payload []byte
}

// NewWriter creates a capture writer and ensures the target directory
// exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan frameRequest, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer and flushes any buffered data.
func (w *Writer) Close() error {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues one wire frame without blocking. The payload is
// copied, the caller may reuse its buffer.
func (w *Writer) TryAppend(payload []byte) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)
	req := frameRequest{
		header: FrameHeader{
			Seq:    w.seq.Add(1),
			TsRecv: time.Now().UTC().UnixNano(),
		},
		payload: cp,
	}
	select {
	case w.ch <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	file, buf, err := w.openCapture()
	if err != nil {
		w.setErr(err)
		return
	}
	defer func() {
		if err := buf.Flush(); err != nil && w.Err() == nil {
			w.setErr(err)
		}
		if err := file.Sync(); err != nil && w.Err() == nil {
			w.setErr(err)
		}
		if err := file.Close(); err != nil && w.Err() == nil {
			w.setErr(err)
		}
	}()

	var (
		headerBuf   = make([]byte, captureHeaderSize)
		checksumBuf [captureChecksumSize]byte
		flushC      <-chan time.Time
	)
	if w.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(w.cfg.FlushInterval)
		defer ticker.Stop()
		flushC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			w.drainNonBlocking(buf, headerBuf, &checksumBuf)
			return
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if err := writeFrame(buf, headerBuf, &checksumBuf, req); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := buf.Flush(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) drainNonBlocking(buf *bufio.Writer, headerBuf []byte, checksumBuf *[captureChecksumSize]byte) {
	for {
		select {
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if err := writeFrame(buf, headerBuf, checksumBuf, req); err != nil {
				w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func writeFrame(buf *bufio.Writer, headerBuf []byte, checksumBuf *[captureChecksumSize]byte, req frameRequest) error {
	encodeHeader(headerBuf, req.header, len(req.payload))
	sum := checksum(headerBuf, req.payload)
	binary.LittleEndian.PutUint32(checksumBuf[:], sum)

	if _, err := buf.Write(headerBuf); err != nil {
		return err
	}
	if len(req.payload) > 0 {
		if _, err := buf.Write(req.payload); err != nil {
			return err
		}
	}
	if _, err := buf.Write(checksumBuf[:]); err != nil {
		return err
	}
	return nil
}

func (w *Writer) openCapture() (*os.File, *bufio.Writer, error) {
	ts := time.Now().UTC().Format("20060102-150405")
	for attempt := 1; ; attempt++ {
		name := fmt.Sprintf("%s-%s-%03d.cap", w.cfg.FilePrefix, ts, attempt)
		path := filepath.Join(w.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return nil, nil, err
		}
		return file, bufio.NewWriterSize(file, w.cfg.BufferSize), nil
	}
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	if w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}
