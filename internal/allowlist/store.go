package allowlist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("entry not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the allowed table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

// ListAll returns every entry, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("created DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

func (s *Store) Create(ctx context.Context, mac, memo string) (Entry, error) {
	e := Entry{MACAddress: mac, Memo: memo}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return e, nil
}

func (s *Store) Update(ctx context.Context, id int64, mac, memo string) error {
	res := s.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).Updates(map[string]any{
		"mac_address": mac,
		"memo":        memo,
	})
	if res.Error != nil {
		return fmt.Errorf("update entry %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entry; deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// MACExists reports whether an entry other than excludeID uses mac.
// Pass 0 to check against all entries.
func (s *Store) MACExists(ctx context.Context, mac string, excludeID int64) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&Entry{}).Where("mac_address = ?", mac)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup mac %s: %w", mac, err)
	}
	return count > 0, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}
