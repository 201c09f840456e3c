// Package store persists attack runs and their modification history in a
// local SQLite database.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/libshade/libshade/attack"
)

// AttackRun is one persisted attack result.
type AttackRun struct {
	ID                   string `gorm:"primaryKey"`
	LibraryName          string `gorm:"index"`
	Mode                 string
	Level                string
	Evaded               bool
	Phase                string
	TotalIterations      int
	SuccessfulIterations int
	BestIteration        int
	FinalEntropy         float64
	ArtifactPath         string
	CreatedAt            int64 `gorm:"autoCreateTime"`
}

// Modification is one persisted perturbation record of a run.
type Modification struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	Operation string
	Target    string
	Before    string
	After     string
	Affected  string `gorm:"type:text"` // comma-joined identifiers
	At        time.Time
}

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at the given path and
// migrates the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&AttackRun{}, &Modification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveResult persists a finished attack run and its modification log.
func (s *Store) SaveResult(cfg attack.Config, result *attack.Result) error {
	run := &AttackRun{
		ID:                   result.RunID,
		LibraryName:          result.LibraryName,
		Mode:                 string(cfg.Mode),
		Level:                string(cfg.Level),
		Evaded:               result.Evaded,
		Phase:                result.Phase.String(),
		TotalIterations:      result.TotalIterations,
		SuccessfulIterations: result.SuccessfulIterations,
		BestIteration:        result.BestIteration,
		FinalEntropy:         result.FinalEntropy,
		ArtifactPath:         result.ArtifactPath,
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}
	for _, record := range result.Modifications {
		mod := &Modification{
			RunID:     result.RunID,
			Operation: record.Operation,
			Target:    record.Target,
			Before:    record.Before,
			After:     record.After,
			Affected:  strings.Join(record.Affected, ","),
			At:        record.At,
		}
		if err := s.db.Create(mod).Error; err != nil {
			return fmt.Errorf("failed to save modification for run %s: %w", result.RunID, err)
		}
	}
	return nil
}

// Runs lists persisted runs for a library, newest first.
func (s *Store) Runs(libraryName string) ([]AttackRun, error) {
	var runs []AttackRun
	query := s.db.Order("created_at desc")
	if libraryName != "" {
		query = query.Where("library_name = ?", libraryName)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Modifications lists the modification history of one run in order.
func (s *Store) Modifications(runID string) ([]Modification, error) {
	var mods []Modification
	if err := s.db.Where("run_id = ?", runID).Order("id").Find(&mods).Error; err != nil {
		return nil, fmt.Errorf("failed to list modifications for run %s: %w", runID, err)
	}
	return mods, nil
}
