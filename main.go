package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"labelcheck/pkg/catalog"
	"labelcheck/pkg/config"
	"labelcheck/pkg/pipeline"
)

var (
	cfg       config.Config
	jwtSecret []byte
	products  *catalog.Catalog
	checker   *pipeline.Pipeline
)

func main() {
	// Auto-load ./.env if present before reading vars
	loadDotEnv()
	c, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg = c
	jwtSecret = []byte(cfg.JWTSecret)

	// `./labelcheck migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.DBAutoMigrate = true
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	if err := initChecker(); err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	r := gin.Default()
	setupRoutes(r)
	r.Run(":" + cfg.Port)
}

// initChecker loads the catalog and builds the tesseract-backed pipeline.
func initChecker() error {
	var err error
	products, err = catalog.LoadCSVDir(cfg.CatalogDir)
	if err != nil {
		return err
	}
	rec, err := cfg.Recognizer()
	if err != nil {
		return err
	}
	checker = pipeline.New(rec, products, pipeline.Options{
		Preprocess: cfg.Preprocess(),
		OCRTimeout: cfg.OCRTimeout,
		Match:      cfg.Match(),
	})
	return nil
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	f, err := os.Open(filepath.Clean(".env"))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
