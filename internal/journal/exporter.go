package journal

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"talentcore/internal/blob"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportInput selects the journal slice to snapshot.
type ExportInput struct {
	Filter      Filter
	RequestedBy string
}

// ExportRecord tracks an export request and its resulting object.
type ExportRecord struct {
	ID          string       `json:"id"`
	Filter      Filter       `json:"-"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Key         string       `json:"key,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	EntryCount  int          `json:"entry_count"`
	RequestedBy string       `json:"requested_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Worker snapshots journal slices to a blob store asynchronously.
type Worker struct {
	journal Journal
	store   blob.Store
	logger  *slog.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker over the journal and blob store.
func NewWorker(j Journal, store blob.Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		journal: j,
		store:   store,
		logger:  logger,
		queue:   make(chan string, 32),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue schedules an export and returns the queued record.
func (w *Worker) Enqueue(input ExportInput) (ExportRecord, error) {
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Filter:      input.Filter,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[record.ID] = &record
	snapshot := record
	w.mu.Unlock()

	select {
	case w.queue <- record.ID:
	default:
		w.fail(record.ID, fmt.Errorf("export queue full"))
		failed, _ := w.Get(record.ID)
		return failed, nil
	}
	return snapshot, nil
}

// Get returns a copy of the export record.
func (w *Worker) Get(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return *rec, true
}

func (w *Worker) process(id string) {
	w.mu.Lock()
	rec, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	rec.Status = ExportStatusRunning
	rec.UpdatedAt = time.Now().UTC()
	filter := rec.Filter
	w.mu.Unlock()

	entries, err := w.journal.List(w.ctx, filter)
	if err != nil {
		w.fail(id, fmt.Errorf("list journal: %w", err))
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		w.fail(id, fmt.Errorf("encode entries: %w", err))
		return
	}
	key := fmt.Sprintf("exports/journal/%s.json", id)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), "application/json")
	if err != nil {
		w.fail(id, fmt.Errorf("store export: %w", err))
		return
	}

	now := time.Now().UTC()
	w.mu.Lock()
	if rec, ok := w.jobs[id]; ok {
		rec.Status = ExportStatusSucceeded
		rec.Key = info.Key
		rec.SizeBytes = info.Size
		rec.EntryCount = len(entries)
		rec.UpdatedAt = now
		rec.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("journal export complete", "export_id", id, "key", key, "entries", len(entries))
}

func (w *Worker) fail(id string, cause error) {
	now := time.Now().UTC()
	w.mu.Lock()
	if rec, ok := w.jobs[id]; ok {
		rec.Status = ExportStatusFailed
		rec.Error = cause.Error()
		rec.UpdatedAt = now
		rec.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Error("journal export failed", "export_id", id, "error", cause)
}
