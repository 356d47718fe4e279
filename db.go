package main

import (
	"log"
	"os"

	"gorm.io/gorm"

	"labelcheck/pkg/store"
)

var (
	db *gorm.DB
	st *store.Store
)

func initDB() {
	s, err := store.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect postgres database: ", err)
	}
	st, db = s, s.DB()
	// Control schema migrations with DB_AUTO_MIGRATE (default true). Permission errors are logged and ignored.
	if cfg.DBAutoMigrate {
		if err := st.Migrate(); err != nil {
			log.Printf("migration warning: %v", err)
		}
	}
	seedDB()
}

func seedDB() {
	if err := st.SeedAdmin(cfg.AdminPassword); err != nil {
		log.Printf("failed to seed admin user: %v", err)
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for local uploads (UPLOAD_BASE).
func uploadBaseDir() string {
	if cfg.UploadBase != "" {
		return cfg.UploadBase
	}
	return "uploads"
}
