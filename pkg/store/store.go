// Package store persists label checks and users in Postgres through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"labelcheck/models"
	"labelcheck/pkg/fields"
	"labelcheck/pkg/pipeline"
)

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN")

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates the schema and seeds roles. Each table is migrated on its
// own so a permission problem on one does not block the others.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.Role{}); err != nil {
		log.Printf("migration warning (roles): %v", err)
	}
	if err := s.seedRoles(); err != nil {
		return err
	}
	for name, m := range map[string]any{
		"users":      &models.User{},
		"scans":      &models.Scan{},
		"violations": &models.Violation{},
	} {
		if err := s.db.AutoMigrate(m); err != nil {
			log.Printf("migration warning (%s): %v", name, err)
		}
	}
	return nil
}

func (s *Store) seedRoles() error {
	for _, r := range models.DefaultRoles() {
		r := r
		if err := s.db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

// ErrUserExists is returned by CreateUser for a taken username.
var ErrUserExists = errors.New("user already exists")

// CreateUser stores a user with the named role, creating the role if needed.
func (s *Store) CreateUser(username, password, roleName string) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := models.Role{Name: roleName}
	for _, r := range models.DefaultRoles() {
		if r.Name == roleName {
			role.Description = r.Description
		}
	}
	if err := s.db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		return nil, fmt.Errorf("ensure role %s: %w", roleName, err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashed, RoleID: &rid}
	if err := s.db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return nil, ErrUserExists
		}
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// SeedAdmin creates the admin user when it does not exist yet.
func (s *Store) SeedAdmin(password string) error {
	_, err := s.CreateUser("admin", password, models.RoleAdministrator)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Println("Seeded admin user: username=admin")
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// Source describes where a checked image came from.
type Source struct {
	Kind          string
	URL           string
	FileName      string
	StorePath     string
	ProcessedPath string
	ContentType   string
	UserID        *uint
}

func (src Source) scan() models.Scan {
	kind := src.Kind
	if kind == "" {
		kind = models.SourceUpload
	}
	return models.Scan{
		UserID:        src.UserID,
		Source:        kind,
		SourceURL:     src.URL,
		FileName:      src.FileName,
		StorePath:     src.StorePath,
		ProcessedPath: src.ProcessedPath,
		ContentType:   src.ContentType,
	}
}

// applyResult copies the reconciled fields and the verdict onto scan.
func applyResult(scan *models.Scan, res *pipeline.Result) {
	f := res.Fields
	scan.Product = f.Product
	scan.Manufacturer = f.Manufacturer
	scan.Address = f.Address
	scan.Commodity = f.Commodity
	scan.NetQuantity = f.NetQuantity
	scan.MRP = f.MRP
	scan.Date = f.Date
	scan.ConsumerCare = f.ConsumerCare
	scan.Origin = f.Origin
	scan.RawText = f.RawText
	scan.MRPAmount = nil
	if amt, err := fields.ParseAmount(f.MRP); err == nil {
		scan.MRPAmount = &amt
	}
	scan.Category = string(res.Category)
	scan.MatchedFromCSV = res.MatchedFromCSV
	scan.MatchScore = res.MatchScore
	scan.UsedFallback = res.UsedFallback
	scan.Compliant = res.Compliant
	scan.ComplianceScore = res.ComplianceScore
}

// addViolation records the issues of a non-compliant result.
func addViolation(tx *gorm.DB, scan *models.Scan, res *pipeline.Result) error {
	if res.Compliant {
		return nil
	}
	v := models.Violation{
		ScanID:     scan.ID,
		Issue:      res.Summary(),
		Severity:   models.SeverityHigh,
		DetectedAt: time.Now(),
	}
	if err := tx.Create(&v).Error; err != nil {
		return err
	}
	scan.Violations = append(scan.Violations, v)
	return nil
}

// SaveResult stores a scan and, when the label is non-compliant, one
// violation carrying every issue.
func (s *Store) SaveResult(ctx context.Context, res *pipeline.Result, src Source) (*models.Scan, error) {
	if res == nil {
		return nil, errors.New("nil result")
	}
	scan := src.scan()
	applyResult(&scan, res)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&scan).Error; err != nil {
			return err
		}
		return addViolation(tx, &scan, res)
	})
	if err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}
	return &scan, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// SaveFailure records an image that could not be checked.
func (s *Store) SaveFailure(ctx context.Context, src Source, reason error) (*models.Scan, error) {
	scan := src.scan()
	scan.Failed = true
	msg := truncate(reason.Error(), 255)
	scan.FailedReason = msg
	if err := s.db.WithContext(ctx).Create(&scan).Error; err != nil {
		return nil, fmt.Errorf("save failed scan: %w", err)
	}
	return &scan, nil
}

// Check is one row of the compliance-check listing.
type Check struct {
	ScanID     uint      `json:"scan_id"`
	Product    string    `json:"product"`
	MRP        string    `json:"mrp"`
	NetQty     string    `json:"net_qty"`
	Category   string    `json:"category"`
	Source     string    `json:"source"`
	DetectedAt time.Time `json:"detected_at"`
	Status     string    `json:"status"`
	Issue      string    `json:"issue"`
	Severity   string    `json:"severity"`
}

// ListChecks returns violations joined with their scans, newest first.
// limit <= 0 means no limit.
func (s *Store) ListChecks(ctx context.Context, limit int) ([]Check, error) {
	q := s.db.WithContext(ctx).
		Table("violations AS v").
		Select(`s.id AS scan_id, s.product, s.mrp, s.net_quantity AS net_qty, s.category, s.source,
			v.detected_at, 'Non-Compliant' AS status, v.issue, v.severity`).
		Joins("JOIN scans s ON s.id = v.scan_id").
		Order("v.detected_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Check
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return rows, nil
}

// GetScan loads one scan with its violations.
func (s *Store) GetScan(ctx context.Context, id uint) (*models.Scan, error) {
	var scan models.Scan
	if err := s.db.WithContext(ctx).Preload("Violations").First(&scan, id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// ScannedFiles returns the file names already recorded for a source kind,
// so a rerun over the same folder skips them.
func (s *Store) ScannedFiles(ctx context.Context, kind string) (map[string]bool, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&models.Scan{}).
		Where("source = ? AND file_name <> ''", kind).
		Pluck("file_name", &names).Error; err != nil {
		return nil, fmt.Errorf("scanned files: %w", err)
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}

// Stats summarizes the scans created in [from, to).
type Stats struct {
	Total        int64   `json:"total"`
	Compliant    int64   `json:"compliant"`
	NonCompliant int64   `json:"non_compliant"`
	Failed       int64   `json:"failed"`
	Matched      int64   `json:"matched_from_csv"`
	AvgScore     float64 `json:"avg_compliance_score"`
}

// ComplianceStats aggregates scans in a time window.
func (s *Store) ComplianceStats(ctx context.Context, from, to time.Time) (Stats, error) {
	var st Stats
	err := s.db.WithContext(ctx).Model(&models.Scan{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN NOT failed AND compliant THEN 1 ELSE 0 END),0) AS compliant,
			COALESCE(SUM(CASE WHEN NOT failed AND NOT compliant THEN 1 ELSE 0 END),0) AS non_compliant,
			COALESCE(SUM(CASE WHEN failed THEN 1 ELSE 0 END),0) AS failed,
			COALESCE(SUM(CASE WHEN matched_from_csv THEN 1 ELSE 0 END),0) AS matched,
			COALESCE(AVG(CASE WHEN NOT failed THEN compliance_score END),0) AS avg_score`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&st).Error
	if err != nil {
		return Stats{}, fmt.Errorf("compliance stats: %w", err)
	}
	return st, nil
}

// ScansBetween lists scans created in [from, to), oldest first.
func (s *Store) ScansBetween(ctx context.Context, from, to time.Time) ([]models.Scan, error) {
	var rows []models.Scan
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scans between: %w", err)
	}
	return rows, nil
}

// FailedScans returns scans whose image could not be checked, oldest first.
func (s *Store) FailedScans(ctx context.Context, limit int) ([]models.Scan, error) {
	q := s.db.WithContext(ctx).Where("failed = ?", true).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Scan
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed scans: %w", err)
	}
	return rows, nil
}

// ResolveFailure replaces a failed scan's outcome with res.
func (s *Store) ResolveFailure(ctx context.Context, id uint, res *pipeline.Result) (*models.Scan, error) {
	if res == nil {
		return nil, errors.New("nil result")
	}
	var scan models.Scan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&scan, id).Error; err != nil {
			return err
		}
		if !scan.Failed {
			return fmt.Errorf("scan %d is not failed", id)
		}
		applyResult(&scan, res)
		scan.Failed = false
		scan.FailedReason = ""
		if err := tx.Save(&scan).Error; err != nil {
			return err
		}
		return addViolation(tx, &scan, res)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve scan %d: %w", id, err)
	}
	return &scan, nil
}
