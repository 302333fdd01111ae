package repository

import (
	"fmt"

	"gorm.io/gorm"

	"gemini-playground/internal/model"
)

type TurnRecordRepository struct {
	db *gorm.DB
}

func NewTurnRecordRepository(db *gorm.DB) *TurnRecordRepository {
	return &TurnRecordRepository{db: db}
}

func (r *TurnRecordRepository) Create(record *model.TurnRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create turn record failed: %w", err)
	}
	return nil
}
