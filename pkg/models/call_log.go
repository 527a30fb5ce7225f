package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CallStatus is the terminal outcome of a dispatched tool call.
type CallStatus string

const (
	CallSuccess          CallStatus = "success"
	CallFailed           CallStatus = "failed"
	CallTimeout          CallStatus = "timeout"
	CallPermissionDenied CallStatus = "permission_denied"
)

// CallLog is an append-only audit record of every dispatched call,
// including denials and timeouts. Writes are best-effort: a failed log
// write never fails the call itself.
type CallLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;index" json:"userId"`
	MCPID        string         `gorm:"column:mcp_id;size:255;not null;index" json:"mcpId"`
	ToolName     string         `gorm:"size:255;not null" json:"toolName"`
	Scope        Scope          `gorm:"size:20;not null" json:"scope"`
	Params       datatypes.JSON `gorm:"column:params" json:"params,omitempty"`
	Result       datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	Status       CallStatus     `gorm:"size:32;not null" json:"status"`
	LatencyMS    int64          `gorm:"column:latency_ms;not null" json:"latencyMs"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// TableName specifies the table name for CallLog
func (CallLog) TableName() string {
	return "call_logs"
}

// BeforeCreate hook to ensure ID is set
func (c *CallLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
