package voiceprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Record is the single-row table backing GormStore. The profile is stored
// as the same JSON document the other stores use.
type Record struct {
	ID          uint      `gorm:"primaryKey"`
	Profile     []byte    `gorm:"type:blob;not null"`
	SampleCount int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Record) TableName() string {
	return "voiceprints"
}

// GormStore keeps the voiceprint in a SQL database. There is exactly one
// row; retraining overwrites it.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate voiceprint table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Load implements Store.
func (s *GormStore) Load() (*Voiceprint, error) {
	var rec Record
	err := s.db.First(&rec, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read voiceprint row: %w", err)
	}

	var vp Voiceprint
	if err := json.Unmarshal(rec.Profile, &vp); err != nil {
		return nil, fmt.Errorf("decode voiceprint row: %w", err)
	}
	return &vp, nil
}

// Save implements Store.
func (s *GormStore) Save(vp *Voiceprint) error {
	data, err := json.Marshal(vp)
	if err != nil {
		return fmt.Errorf("encode voiceprint: %w", err)
	}
	rec := Record{ID: 1, Profile: data, SampleCount: vp.SampleCount}
	if err := s.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("write voiceprint row: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *GormStore) Clear() error {
	if err := s.db.Delete(&Record{}, 1).Error; err != nil {
		return fmt.Errorf("delete voiceprint row: %w", err)
	}
	return nil
}
