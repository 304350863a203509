package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var ErrArchiveDegraded = errors.New("archive degraded, write dropped")

// writeOp is a queued transactional write, or a sync marker when done is set.
type writeOp struct {
	fn   func(*sql.Tx) error
	done chan struct{}
}

// Archive records turns and game endings in SQLite. Writes are queued and
// applied by a single writer goroutine; the first failed write marks the
// archive degraded and later writes are dropped.
type Archive struct {
	db           *sql.DB
	path         string
	writeChan    chan writeOp
	healthStatus atomic.Bool
	logger       zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// OpenArchive opens the database at path and starts the writer.
func OpenArchive(path string, logger zerolog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithCancel(context.Background())

	a := &Archive{
		db:        db,
		path:      path,
		writeChan: make(chan writeOp, 1000),
		logger:    logger.With().Str("component", "archive").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.healthStatus.Store(true)

	a.wg.Add(1)
	go a.writerLoop()

	return a, nil
}

// IsHealthy returns true if the archive is accepting writes
func (a *Archive) IsHealthy() bool {
	return a.healthStatus.Load()
}

func (a *Archive) writerLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			// Drain remaining writes
			for {
				select {
				case op := <-a.writeChan:
					a.apply(op)
				default:
					return
				}
			}

		case op := <-a.writeChan:
			a.apply(op)
		}
	}
}

func (a *Archive) apply(op writeOp) {
	if op.done != nil {
		close(op.done)
		return
	}
	// Skip if already degraded
	if !a.healthStatus.Load() {
		return
	}
	a.executeWrite(op.fn)
}

func (a *Archive) executeWrite(fn func(*sql.Tx) error) {
	tx, err := a.db.Begin()
	if err != nil {
		a.degrade(fmt.Errorf("begin transaction: %w", err))
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		a.degrade(err)
		return
	}

	if err := tx.Commit(); err != nil {
		a.degrade(fmt.Errorf("commit: %w", err))
	}
}

func (a *Archive) degrade(err error) {
	a.logger.Error().Err(err).Msg("archive degraded")
	a.healthStatus.Store(false)
}

func (a *Archive) enqueue(what string, fn func(*sql.Tx) error) error {
	if !a.healthStatus.Load() {
		return ErrArchiveDegraded
	}
	select {
	case a.writeChan <- writeOp{fn: fn}:
		return nil
	default:
		a.logger.Warn().Str("write", what).Msg("archive write queue full, dropping")
		return nil
	}
}

// Sync blocks until every write queued before it has been applied.
func (a *Archive) Sync(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case a.writeChan <- writeOp{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and closes the database connection
func (a *Archive) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			a.logger.Warn().Msg("archive writer shutdown timeout, some writes may be lost")
		}

		err = a.db.Close()
	})
	return err
}

// InitDB creates the database schema
func (a *Archive) InitDB() error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB closes the archive and removes the database file
func (a *Archive) DeleteDB() error {
	if err := a.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	for _, p := range []string{a.path, a.path + "-wal", a.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete database file: %w", err)
		}
	}
	return nil
}
