package logger

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/ygtkoc/RMS/backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLoggerTest(t *testing.T) (*gorm.DB, *slog.Logger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.LogEntry{}); err != nil {
		t.Fatal(err)
	}
	return db, slog.New(NewDBHandler(db))
}

func TestHandle_PersistsEntry(t *testing.T) {
	db, log := setupLoggerTest(t)

	log.Info("user logged in", "source", "auth", "username", "alice")

	var entry models.LogEntry
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("entry not persisted: %v", err)
	}
	if entry.Level != "INFO" || entry.Message != "user logged in" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Source != "auth" || entry.Username != "alice" {
		t.Errorf("source/username not promoted to columns: %+v", entry)
	}
}

func TestHandle_ExtraAttrsLandInData(t *testing.T) {
	db, log := setupLoggerTest(t)

	log.Error("verification SMS failed", "source", "auth", "error", "gateway error 40")

	var entry models.LogEntry
	if err := db.First(&entry).Error; err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(entry.Data, "gateway error 40") {
		t.Errorf("extra attributes should land in the data blob, got %q", entry.Data)
	}
}

func TestWithAttrs_CarriesPromotedColumns(t *testing.T) {
	db, log := setupLoggerTest(t)

	scoped := log.With("source", "handlers")
	scoped.Warn("session save failed")

	var entry models.LogEntry
	if err := db.First(&entry).Error; err != nil {
		t.Fatal(err)
	}
	if entry.Source != "handlers" {
		t.Errorf("attrs from With should promote too, got %+v", entry)
	}
}
