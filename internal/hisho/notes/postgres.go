package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Note is the gorm model of one note row in the postgres backend.
type Note struct {
	ID        uint64    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"index:idx_notes_owner_id,priority:1;not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

// GormStore keeps notes in a postgres table through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenPostgres connects to dsn and migrates the notes table.
func OpenPostgres(dsn string) (*GormStore, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewGormStore(gdb)
}

// NewGormStore wraps an open gorm connection and migrates the notes table.
func NewGormStore(gdb *gorm.DB) (*GormStore, error) {
	if err := gdb.AutoMigrate(&Note{}); err != nil {
		return nil, fmt.Errorf("migrate notes: %w", err)
	}
	return &GormStore{db: gdb}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Add(ctx context.Context, ownerID, text string) error {
	if err := s.db.WithContext(ctx).Create(&Note{OwnerID: ownerID, Text: text}).Error; err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, ownerID string) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&Note{}).
		Where("owner_id = ?", ownerID).
		Order("id").
		Pluck("text", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

// DeleteAt locks the target row inside a transaction so a concurrent delete
// for the same owner cannot remove a different note.
func (s *GormStore) DeleteAt(ctx context.Context, ownerID string, pos int) error {
	if pos < 1 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n Note
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", ownerID).
			Order("id").
			Offset(pos - 1).
			Limit(1).
			Take(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find note %d: %w", pos, err)
		}
		if err := tx.Delete(&Note{}, n.ID).Error; err != nil {
			return fmt.Errorf("delete note %d: %w", pos, err)
		}
		return nil
	})
}

func (s *GormStore) Count(ctx context.Context, ownerID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Note{}).Where("owner_id = ?", ownerID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return int(n), nil
}
