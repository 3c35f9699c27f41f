package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	writerBufferSize   = 1000
	writerBatchSize    = 100
	writerBatchTimeout = 100 * time.Millisecond
	writerStoreTimeout = 5 * time.Second
)

// Writer batches events into bulk storage writes on a background
// goroutine. A full buffer degrades to a synchronous write; events are
// never dropped.
type Writer struct {
	storage Storage
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	log     *slog.Logger
}

func newWriter(storage Storage, log *slog.Logger) *Writer {
	w := &Writer{
		storage: storage,
		events:  make(chan Event, writerBufferSize),
		done:    make(chan struct{}),
		log:     log,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) write(ctx context.Context, e Event) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.mu.Unlock()

	select {
	case w.events <- e:
		return nil
	default:
		// Buffer full; write synchronously rather than losing the event.
		return w.storage.Store(ctx, []Event{e})
	}
}

func (w *Writer) close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)

	flushed := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	batch := make([]Event, 0, writerBatchSize)
	ticker := time.NewTicker(writerBatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writerStoreTimeout)
		if err := w.storage.Store(ctx, batch); err != nil {
			w.log.Error("audit batch write failed",
				slog.Int("events", len(batch)),
				slog.String("error", err.Error()))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.events:
			batch = append(batch, e)
			if len(batch) >= writerBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case e := <-w.events:
					batch = append(batch, e)
					if len(batch) >= writerBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
