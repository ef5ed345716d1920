package experience

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrPersistenceClosed is returned when writing after Close
	ErrPersistenceClosed = errors.New("persistence layer closed")
	// ErrInvalidPersistenceType is returned when an unknown persistence type is specified
	ErrInvalidPersistenceType = errors.New("invalid persistence type")
)

// PersistenceType represents the type of persistence backend
type PersistenceType string

const (
	// PersistenceTypeNone disables persistence
	PersistenceTypeNone PersistenceType = "none"
	// PersistenceTypeFile writes JSON lines files
	PersistenceTypeFile PersistenceType = "file"
)

// filePattern matches every file written by FilePersistence
const filePattern = "experiences_*.jsonl"

// PersistenceConfig contains configuration for the persistence layer
type PersistenceConfig struct {
	Type             PersistenceType `mapstructure:"type"`
	BaseDir          string          `mapstructure:"base_dir"`
	MaxFileSize      int64           `mapstructure:"max_file_size"` // bytes, 0 disables size rotation
	RotationInterval time.Duration   `mapstructure:"rotation_interval"`
}

// DefaultPersistenceConfig returns a default persistence configuration
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Type:             PersistenceTypeNone,
		BaseDir:          "experiences",
		MaxFileSize:      100 * 1024 * 1024, // 100MB
		RotationInterval: time.Hour,
	}
}

// PersistenceLayer defines the interface for persisting experiences
type PersistenceLayer interface {
	// Write persists a batch of experiences
	Write(ctx context.Context, experiences []*Experience) error

	// Read retrieves experiences for envID (all environments when empty)
	Read(ctx context.Context, envID string, limit int) ([]*Experience, error)

	// Close cleanly shuts down the persistence layer
	Close() error

	// Stats returns persistence statistics
	Stats() PersistenceStats
}

// PersistenceStats contains statistics about persistence operations
type PersistenceStats struct {
	TotalWritten  int64
	TotalRead     int64
	BytesWritten  int64
	WriteErrors   int64
	ReadErrors    int64
	FilesCreated  int
	LastWriteTime time.Time
	LastReadTime  time.Time
}

// FilePersistence writes experiences as JSON lines, rotating files by
// size and by age.
type FilePersistence struct {
	config PersistenceConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	stats PersistenceStats

	currentFile *os.File
	writer      *bufio.Writer
	currentSize int64
	fileIndex   int
	closed      bool

	closeChan chan struct{}
	wg        sync.WaitGroup
}

// NewFilePersistence creates a new file-based persistence layer
func NewFilePersistence(config PersistenceConfig, logger zerolog.Logger) (*FilePersistence, error) {
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	fp := &FilePersistence{
		config:    config,
		logger:    logger.With().Str("component", "file_persistence").Logger(),
		closeChan: make(chan struct{}),
	}

	if err := fp.rotateFile(); err != nil {
		return nil, err
	}

	if config.RotationInterval > 0 {
		fp.wg.Add(1)
		go fp.rotationLoop()
	}

	return fp, nil
}

// Write appends a batch of experiences to the current file
func (fp *FilePersistence) Write(ctx context.Context, experiences []*Experience) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.closed {
		return ErrPersistenceClosed
	}

	for _, exp := range experiences {
		if err := ctx.Err(); err != nil {
			return err
		}

		if fp.config.MaxFileSize > 0 && fp.currentSize >= fp.config.MaxFileSize {
			if err := fp.rotateFile(); err != nil {
				fp.stats.WriteErrors++
				return fmt.Errorf("failed to rotate file: %w", err)
			}
		}

		data, err := json.Marshal(exp)
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to marshal experience: %w", err)
		}

		n, err := fp.writer.Write(append(data, '\n'))
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to write experience: %w", err)
		}

		fp.currentSize += int64(n)
		fp.stats.TotalWritten++
		fp.stats.BytesWritten += int64(n)
	}

	if err := fp.writer.Flush(); err != nil {
		fp.stats.WriteErrors++
		return fmt.Errorf("failed to flush experiences: %w", err)
	}
	if err := fp.currentFile.Sync(); err != nil {
		fp.logger.Warn().Err(err).Msg("Failed to sync file")
	}

	fp.stats.LastWriteTime = time.Now()

	fp.logger.Debug().
		Int("batch_size", len(experiences)).
		Int64("file_size", fp.currentSize).
		Msg("Wrote experience batch to file")

	return nil
}

// Read scans every experience file in name order
func (fp *FilePersistence) Read(ctx context.Context, envID string, limit int) ([]*Experience, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(fp.config.BaseDir, filePattern))
	if err != nil {
		fp.stats.ReadErrors++
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)

	var experiences []*Experience
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return experiences, err
		}
		if limit > 0 && len(experiences) >= limit {
			break
		}

		remaining := 0
		if limit > 0 {
			remaining = limit - len(experiences)
		}
		exps, err := readFile(file, envID, remaining)
		if err != nil {
			fp.stats.ReadErrors++
			fp.logger.Warn().
				Err(err).
				Str("file", file).
				Msg("Failed to read experience file")
			continue
		}
		experiences = append(experiences, exps...)
	}

	fp.stats.LastReadTime = time.Now()
	fp.stats.TotalRead += int64(len(experiences))

	return experiences, nil
}

// readFile reads experiences from a single file; limit 0 means no limit
func readFile(filename, envID string, limit int) ([]*Experience, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var experiences []*Experience
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if limit > 0 && len(experiences) >= limit {
			break
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var exp Experience
		if err := json.Unmarshal(line, &exp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal experience: %w", err)
		}

		if envID == "" || exp.EnvID == envID {
			experiences = append(experiences, &exp)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return experiences, nil
}

// rotateFile closes the current file and opens a new one. Must be called
// with the lock held.
func (fp *FilePersistence) rotateFile() error {
	if fp.currentFile != nil {
		if err := fp.writer.Flush(); err != nil {
			fp.logger.Warn().Err(err).Msg("Failed to flush previous file")
		}
		if err := fp.currentFile.Close(); err != nil {
			fp.logger.Warn().Err(err).Msg("Failed to close previous file")
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	var filename string
	for {
		filename = filepath.Join(fp.config.BaseDir, fmt.Sprintf("experiences_%s_%04d.jsonl", timestamp, fp.fileIndex))
		fp.fileIndex++
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			break
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	fp.currentFile = file
	fp.writer = bufio.NewWriter(file)
	fp.currentSize = 0
	fp.stats.FilesCreated++

	fp.logger.Info().
		Str("filename", filename).
		Msg("Rotated to new experience file")

	return nil
}

// rotationLoop handles periodic file rotation
func (fp *FilePersistence) rotationLoop() {
	defer fp.wg.Done()

	ticker := time.NewTicker(fp.config.RotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fp.mu.Lock()
			if !fp.closed {
				if err := fp.rotateFile(); err != nil {
					fp.logger.Error().Err(err).Msg("Failed to rotate file")
				}
			}
			fp.mu.Unlock()

		case <-fp.closeChan:
			return
		}
	}
}

// Close flushes and closes the current file
func (fp *FilePersistence) Close() error {
	fp.mu.Lock()
	if fp.closed {
		fp.mu.Unlock()
		return nil
	}
	fp.closed = true
	close(fp.closeChan)
	fp.mu.Unlock()

	fp.wg.Wait()

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.writer.Flush(); err != nil {
		return err
	}
	return fp.currentFile.Close()
}

// Stats returns persistence statistics
func (fp *FilePersistence) Stats() PersistenceStats {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	return fp.stats
}

// NullPersistence is a no-op persistence layer
type NullPersistence struct{}

func (n *NullPersistence) Write(ctx context.Context, experiences []*Experience) error {
	return nil
}

func (n *NullPersistence) Read(ctx context.Context, envID string, limit int) ([]*Experience, error) {
	return nil, nil
}

func (n *NullPersistence) Close() error {
	return nil
}

func (n *NullPersistence) Stats() PersistenceStats {
	return PersistenceStats{}
}

// NewPersistenceLayer creates a persistence layer based on configuration
func NewPersistenceLayer(config PersistenceConfig, logger zerolog.Logger) (PersistenceLayer, error) {
	switch config.Type {
	case PersistenceTypeNone, "":
		return &NullPersistence{}, nil
	case PersistenceTypeFile:
		return NewFilePersistence(config, logger)
	default:
		return nil, fmt.Errorf("%q: %w", config.Type, ErrInvalidPersistenceType)
	}
}
