package models

import "time"

// SeverityHigh is the only severity the rule set produces today.
const SeverityHigh = "High"

// Violation records the issues of a non-compliant scan, joined by "; ".
type Violation struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	ScanID     uint      `gorm:"index;not null"`
	Issue      string    `gorm:"size:1024;not null"`
	Severity   string    `gorm:"size:16;not null;default:High"`
	DetectedAt time.Time `gorm:"index;not null"`
}
