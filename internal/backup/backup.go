// Package backup snapshots the SQLite database, encrypts it and ships it to
// S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	_ "modernc.org/sqlite"
)

var (
	ErrDisabled = errors.New("backup not configured: S3 bucket, credentials and passphrase required")
	ErrNotFound = errors.New("backup not found")
	ErrRunning  = errors.New("a backup is already running")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
	// ScheduleHour is the UTC hour of the daily backup; negative disables it.
	ScheduleHour  int
	RetentionDays int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status
	logger *slog.Logger

	db          *sql.DB
	backupStore *store.BackupStore
	client      s3Client
	now         func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:         cfg,
		db:          db,
		backupStore: bs,
		logger:      logger,
		now:         time.Now,
		status:      Status{State: StateDisabled},
	}
	if cfg.RetentionDays <= 0 {
		m.cfg.RetentionDays = 30
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start runs the daily backup loop. It is a no-op when backups are disabled
// or no schedule hour is set.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.cfg.ScheduleHour < 0 {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// due reports whether the daily backup should run: inside the scheduled hour
// and no completed backup in the last 20 hours.
func (m *Manager) due(ctx context.Context) (bool, error) {
	now := m.now().UTC()
	if now.Hour() != m.cfg.ScheduleHour {
		return false, nil
	}
	latest, err := m.backupStore.LatestCompleted(ctx)
	if err != nil {
		return false, err
	}
	return latest == nil || latest.CompletedAt == nil || now.Sub(*latest.CompletedAt) > 20*time.Hour, nil
}

func (m *Manager) checkSchedule(ctx context.Context) {
	due, err := m.due(ctx)
	if err != nil {
		m.logger.Error("backup schedule check", "error", err)
		return
	}
	if !due {
		return
	}

	if b, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	} else {
		m.logger.Info("scheduled backup complete", "id", b.ID, "size", b.SizeBytes)
	}

	if n, err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	} else if n > 0 {
		m.logger.Info("old backups removed", "count", n)
	}
}

// RunNow snapshots the database with VACUUM INTO, encrypts the snapshot and
// uploads it.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.Lock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.S3.Prefix
	passphrase := m.cfg.Passphrase
	if client == nil {
		m.mu.Unlock()
		return nil, ErrDisabled
	}
	if m.status.State == StateRunning {
		m.mu.Unlock()
		return nil, ErrRunning
	}
	prev := m.status.LastBackup
	m.status = Status{State: StateRunning, LastBackup: prev}
	m.mu.Unlock()

	fail := func(id int64, err error) (*model.Backup, error) {
		if id != 0 {
			if uerr := m.backupStore.UpdateStatus(ctx, id, model.BackupStatusFailed, err.Error()); uerr != nil {
				m.logger.Warn("record backup failure", "id", id, "error", uerr)
			}
		}
		m.setStatus(Status{State: StateError, LastBackup: prev, Error: err.Error()})
		return nil, err
	}

	filename := fmt.Sprintf("reloop-%s.db.enc", m.now().UTC().Format("2006-01-02T150405.000Z"))
	key := filename
	if prefix != "" {
		key = strings.TrimRight(prefix, "/") + "/" + filename
	}

	record, err := m.backupStore.Create(ctx, filename, key)
	if err != nil {
		return fail(0, fmt.Errorf("create backup record: %w", err))
	}

	dir, err := os.MkdirTemp("", "reloop-backup-")
	if err != nil {
		return fail(record.ID, fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return fail(record.ID, fmt.Errorf("snapshot database: %w", err))
	}
	plain, err := os.ReadFile(snapshot)
	if err != nil {
		return fail(record.ID, fmt.Errorf("read snapshot: %w", err))
	}
	sealed, err := Seal(plain, passphrase)
	if err != nil {
		return fail(record.ID, fmt.Errorf("encrypt: %w", err))
	}

	if err := m.backupStore.UpdateStatus(ctx, record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail(record.ID, err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail(record.ID, fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.backupStore.UpdateCompleted(ctx, record.ID, int64(len(sealed))); err != nil {
		return fail(record.ID, err)
	}

	now := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	return m.backupStore.GetByID(ctx, record.ID)
}

// Download streams an encrypted backup from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, *model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, nil, ErrDisabled
	}

	record, err := m.backupStore.GetByID(ctx, backupID)
	if err != nil {
		return nil, nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, nil, ErrNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record, nil
}

// Restore downloads and decrypts a backup into dstPath after checking
// SQLite integrity. The running database is never touched; swapping the file
// in is left to the operator with the service stopped.
func (m *Manager) Restore(ctx context.Context, backupID int64, dstPath string) error {
	body, _, err := m.Download(ctx, backupID)
	if err != nil {
		return err
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dstPath + ".restore"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(ctx, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		return fmt.Errorf("move restored db: %w", err)
	}
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period and returns how
// many were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()

	if client == nil {
		return 0, nil
	}

	before := m.now().UTC().AddDate(0, 0, -retention)
	keys, err := m.backupStore.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete S3 object", "key", key, "error", err)
		}
	}
	return len(keys), nil
}
