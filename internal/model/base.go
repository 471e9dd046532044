package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the bookkeeping columns shared by every collection
type Base struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	IsActive  bool       `gorm:"not null;index" json:"isActive"`
	IsDeleted bool       `gorm:"not null;index" json:"isDeleted"`
	AddedBy   *uuid.UUID `gorm:"type:uuid;index" json:"addedBy,omitempty"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updatedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns the id and resets the lifecycle flags of new rows
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.IsActive = true
	b.IsDeleted = false
	return nil
}

// GetID exposes the primary key to generic code
func (b *Base) GetID() uuid.UUID {
	return b.ID
}

// SetAddedBy records the principal that created the row
func (b *Base) SetAddedBy(id *uuid.UUID) {
	b.AddedBy = id
}

// SetUpdatedBy records the principal that last changed the row
func (b *Base) SetUpdatedBy(id *uuid.UUID) {
	b.UpdatedBy = id
}
