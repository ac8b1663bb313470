// Package models contains the database model definitions.
package models

import (
	"time"
)

// Setting is a key/value record. The strip keeps its animation settings
// (mode, cycle duration) as a JSON document under one key.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{&Setting{}}
}
