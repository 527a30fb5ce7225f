package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserInstall tracks which non-built-in registry entries a user has
// installed and with what instance configuration. Built-in tools are
// implicitly available to everyone and never get an install row.
type UserInstall struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_mcp" json:"userId"`
	MCPID       string         `gorm:"column:mcp_id;size:255;not null;uniqueIndex:idx_user_mcp" json:"mcpId"`
	Scope       Scope          `gorm:"size:20;not null" json:"scope"`
	Config      datatypes.JSON `gorm:"column:config" json:"config,omitempty"`
	IsEnabled   bool           `gorm:"not null;default:true" json:"isEnabled"`
	InstalledAt time.Time      `gorm:"autoCreateTime" json:"installedAt"`
	LastUsedAt  *time.Time     `json:"lastUsedAt,omitempty"`
}

// TableName specifies the table name for UserInstall
func (UserInstall) TableName() string {
	return "user_installs"
}

// BeforeCreate hook to ensure ID is set
func (u *UserInstall) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
