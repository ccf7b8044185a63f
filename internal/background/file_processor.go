package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/carcompare/compare-webserver/internal/utils"
	"github.com/google/uuid"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const defaultQueueSize = 100

var (
	ErrDuplicateFile    = errors.New("file was already uploaded")
	ErrQueueFull        = errors.New("upload queue is full")
	ErrProcessorStopped = errors.New("upload processing has stopped")
)

// JobProcessor does the work for one queued file. The file is removed by the
// FileProcessor once Process returns.
type JobProcessor interface {
	Process(ctx context.Context, fp *FileProcessor, job *FileJob) error
}

type FileProcessor struct {
	uploadDir               string
	queueChan               chan *FileJob
	stopChan                chan bool
	stopOnce                sync.Once
	processingWg            sync.WaitGroup
	activelyProcessing      bool
	mu                      sync.RWMutex
	jobs                    map[string]*FileJob
	MiddlewareEstimatedSize atomic.Int64
	TotalSize               atomic.Int64
	maxTotalSize            int64
}

type FileJob struct {
	ID        string                 `json:"id"`
	Filename  string                 `json:"filename"`
	Size      int64                  `json:"size"`
	Hash      string                 `json:"hash"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Result    map[string]interface{} `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	FilePath  string                 `json:"-"`
	processor JobProcessor
}

func NewFileProcessor(uploadDir string, maxTotalSize int64) (*FileProcessor, error) {
	err := os.MkdirAll(uploadDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}

	fp := &FileProcessor{
		uploadDir:    uploadDir,
		queueChan:    make(chan *FileJob, defaultQueueSize),
		stopChan:     make(chan bool),
		jobs:         make(map[string]*FileJob),
		maxTotalSize: maxTotalSize,
	}

	// Files left over from a previous run still take up space until someone cleans them up
	var totalSize int64
	err = filepath.Walk(uploadDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fp.TotalSize.Store(totalSize)
	fp.MiddlewareEstimatedSize.Store(totalSize)
	return fp, nil
}

// EnqueueFile copies the upload into the upload directory and queues it for processor.
// Uploads whose content matches a job that has not failed are rejected with ErrDuplicateFile.
func (fp *FileProcessor) EnqueueFile(fileHeader *multipart.FileHeader, processor JobProcessor) (*FileJob, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	id := uuid.NewString()
	job := &FileJob{
		ID:        id,
		Filename:  fileHeader.Filename,
		Size:      fileHeader.Size,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		FilePath:  filepath.Join(fp.uploadDir, fmt.Sprintf("%s_%s", id, filepath.Base(fileHeader.Filename))),
		processor: processor,
	}

	dst, err := os.Create(job.FilePath)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		os.Remove(job.FilePath)
		return nil, err
	}

	job.Hash, err = utils.CreateFileHash(dst)
	if err != nil {
		os.Remove(job.FilePath)
		return nil, err
	}

	fp.mu.Lock()
	for _, other := range fp.jobs {
		if other.Hash == job.Hash && other.Status != StatusFailed {
			fp.mu.Unlock()
			os.Remove(job.FilePath)
			return nil, fmt.Errorf("%w as job %s", ErrDuplicateFile, other.ID)
		}
	}
	fp.jobs[job.ID] = job
	fp.mu.Unlock()

	// Never wait on the queue: a request must not hang on a full or stopped processor
	select {
	case <-fp.stopChan:
		fp.dropJob(job)
		return nil, ErrProcessorStopped
	default:
	}

	select {
	case fp.queueChan <- job:
	default:
		fp.dropJob(job)
		return nil, ErrQueueFull
	}

	fp.TotalSize.Add(job.Size)
	logging.GetLogger().Info(fmt.Sprintf("job put in queue, %s", job.ID))

	return job.snapshot(), nil
}

// dropJob forgets a job that never made it into the queue
func (fp *FileProcessor) dropJob(job *FileJob) {
	fp.mu.Lock()
	delete(fp.jobs, job.ID)
	fp.mu.Unlock()
	os.Remove(job.FilePath)
}

// GetJob returns a copy of the job with id
func (fp *FileProcessor) GetJob(id string) (*FileJob, bool) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	job, ok := fp.jobs[id]
	if !ok {
		return nil, false
	}
	return job.snapshot(), true
}

func (job *FileJob) snapshot() *FileJob {
	clone := *job
	clone.processor = nil
	return &clone
}

func (fp *FileProcessor) jobQueueListener(ctx context.Context) {
	defer fp.processingWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fp.stopChan:
			return
		case job := <-fp.queueChan:
			// Only one file is processed at a time (to save resources)
			fp.runJob(ctx, job)
		}
	}
}

func (fp *FileProcessor) runJob(ctx context.Context, job *FileJob) {
	logger := logging.GetLogger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("job %s panicked: %v", job.ID, r))
			logger.WriteCrashFile(r)
			fp.setCurrentlyProcessing(false)
			fp.updateJobStatus(job, StatusFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	logger.Info(fmt.Sprintf("Starting job %v", job.ID))
	fp.setCurrentlyProcessing(true)
	fp.updateJobStatus(job, StatusProcessing, "")

	err := job.processor.Process(ctx, fp, job)

	if removeErr := os.Remove(job.FilePath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		logger.Warn(fmt.Sprintf("failed to remove processed file %s: %v", job.FilePath, removeErr))
	}
	fp.TotalSize.Add(-job.Size)
	fp.MiddlewareEstimatedSize.Add(-job.Size)
	fp.setCurrentlyProcessing(false)

	if err != nil {
		logger.Error(fmt.Sprintf("Failed to process file %s: %v", job.Filename, err))
		fp.updateJobStatus(job, StatusFailed, err.Error())
		return
	}

	fp.updateJobStatus(job, StatusCompleted, "")
	logger.Info(fmt.Sprintf("Completed job %v", job.ID))
}

func (fp *FileProcessor) updateJobStatus(job *FileJob, status string, errMessage string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	job.Status = status
	job.Error = errMessage
	job.UpdatedAt = time.Now()
}

// SetJobResult stores the outcome a processor wants to report for job
func (fp *FileProcessor) SetJobResult(job *FileJob, result map[string]interface{}) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	job.Result = result
	job.UpdatedAt = time.Now()
}

func (fp *FileProcessor) setCurrentlyProcessing(flag bool) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.activelyProcessing = flag
}

func (fp *FileProcessor) IsProcessing() bool {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	return fp.activelyProcessing
}

func (fp *FileProcessor) Start(ctx context.Context) {
	fp.processingWg.Add(1)
	go fp.jobQueueListener(ctx)
}

// Stop waits for the job in progress, if any. Queued jobs stay pending.
func (fp *FileProcessor) Stop() {
	fp.stopOnce.Do(func() {
		close(fp.stopChan)
	})
	fp.processingWg.Wait()
}

func (fp *FileProcessor) MaxTotalSize() int64 {
	return fp.maxTotalSize
}

// SyncTotalSize periodically resets the middleware estimate to the real queued size,
// correcting for admitted requests that never enqueued a file.
func (fp *FileProcessor) SyncTotalSize(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fp.MiddlewareEstimatedSize.Store(fp.TotalSize.Load())
		}
	}
}
