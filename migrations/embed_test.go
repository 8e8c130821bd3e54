package migrations_test

import (
	"strings"
	"testing"

	"github.com/KyaptainJoyboy/Galpal/internal/platform/db"
	"github.com/KyaptainJoyboy/Galpal/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	for i, m := range migs {
		if m.Version != i+1 {
			t.Errorf("expected version %d, got %d", i+1, m.Version)
		}
		if m.Up == "" || m.Down == "" {
			t.Errorf("%s: expected both up and down sections", m.Name)
		}
		if strings.Contains(m.Up, "DROP TABLE") {
			t.Errorf("%s: up section contains a rollback statement", m.Name)
		}
	}
	if !strings.Contains(migs[1].Up, "lab_condition") {
		t.Error("expected lab_condition in the analysis migration")
	}
}
