package storage

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"scriptflow/internal/executor"
)

// Writer persists execution records asynchronously so the pipeline never
// blocks on disk. Entries are dropped (with a warning) when the buffer is
// full; persistence is best-effort by contract.
type Writer struct {
	store *FileStore
	ch    chan *executor.Result
	wg    sync.WaitGroup
	done  chan struct{}
}

func NewWriter(store *FileStore, bufferSize int) *Writer {
	if bufferSize < 1 {
		bufferSize = 1000
	}
	return &Writer{
		store: store,
		ch:    make(chan *executor.Result, bufferSize),
		done:  make(chan struct{}),
	}
}

func (w *Writer) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Save enqueues a record for persistence.
func (w *Writer) Save(res *executor.Result) {
	select {
	case w.ch <- res:
	default:
		log.Warn().Str("script_id", res.ID).Msg("storage buffer full, dropping record")
	}
}

// Flush stops the writer and drains remaining entries, bounded by timeout.
func (w *Writer) Flush(timeout time.Duration) {
	close(w.done)

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("storage writer flushed")
	case <-time.After(timeout):
		log.Warn().Msg("storage writer flush timed out")
	}
}

func (w *Writer) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case res := <-w.ch:
			w.writeWithRetry(res)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case res := <-w.ch:
					w.writeWithRetry(res)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) writeWithRetry(res *executor.Result) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := w.store.SaveResult(res)
		if err == nil {
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			log.Warn().
				Err(err).
				Str("script_id", res.ID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("record write failed, retrying")
			time.Sleep(backoff)
		} else {
			log.Error().
				Err(err).
				Str("script_id", res.ID).
				Msg("record write failed permanently after retries")
		}
	}
}
