package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luciamoreno/gemashop-backend/pkg/migrate"
)

func TestProductsMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_products_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no product migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock_quantity >= 0)",
		"CHECK (price >= 0)",
		"CREATE INDEX IF NOT EXISTS idx_products_is_active_created_at",
		"CREATE INDEX IF NOT EXISTS idx_products_tags",
		"DROP TABLE IF EXISTS products",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
