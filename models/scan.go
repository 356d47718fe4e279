package models

import "time"

// Scan sources.
const (
	SourceUpload  = "upload"
	SourceCapture = "capture"
	SourceFolder  = "folder"
	SourceText    = "text"
)

// Scan is one checked label: where the image came from, the extracted
// fields after catalog reconciliation and the compliance outcome.
type Scan struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    *uint  `gorm:"index"`
	Source    string `gorm:"size:32;index;not null"`
	SourceURL string `gorm:"size:1024"`
	FileName  string `gorm:"size:255"`
	// StorePath and ProcessedPath are relative to the upload base.
	StorePath     string `gorm:"column:store_path;size:512"`
	ProcessedPath string `gorm:"size:512"`
	ContentType   string `gorm:"size:128"`

	Product      string `gorm:"size:512"`
	Manufacturer string `gorm:"size:512"`
	Address      string `gorm:"size:1024"`
	Commodity    string `gorm:"size:512"`
	NetQuantity  string `gorm:"size:128"`
	MRP          string `gorm:"column:mrp;size:128"`
	MRPAmount    *int64 `gorm:"column:mrp_amount"` // whole rupees, nil when unparseable
	Date         string `gorm:"size:128"`
	ConsumerCare string `gorm:"size:512"`
	Origin       string `gorm:"size:128"`
	RawText      string `gorm:"type:text"`

	Category        string  `gorm:"size:32;index"`
	MatchedFromCSV  bool    `gorm:"column:matched_from_csv;default:false"`
	MatchScore      float64 `gorm:"default:0"`
	UsedFallback    bool    `gorm:"default:false"`
	Compliant       bool    `gorm:"index"`
	ComplianceScore int

	// Failed marks images that could not be decoded or recognized. The row is
	// kept so an operator can review the file.
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`

	Violations []Violation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
