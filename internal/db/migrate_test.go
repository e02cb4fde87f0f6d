package db

import (
	"strings"
	"testing"
	"testing/fstest"

	"care-match/internal/db/migrations"
)

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id int);\n-- +migrate Down\nDROP TABLE a;\n"
	got := strings.TrimSpace(ExtractUp(content))
	if got != "CREATE TABLE a (id int);" {
		t.Fatalf("unexpected up section %q", got)
	}
	if ExtractUp("SELECT 1;") != "SELECT 1;" {
		t.Fatalf("expected content without markers to be returned as-is")
	}
}

func TestSQLFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("SELECT 2;")},
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md":  {Data: []byte("docs")},
	}
	files, err := SQLFiles(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "0001_a.sql" || files[1] != "0002_b.sql" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestEmbeddedSchemaHasActivePairIndex(t *testing.T) {
	files, err := SQLFiles(migrations.FS)
	if err != nil || len(files) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", files, err)
	}
	data, err := migrations.FS.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up := ExtractUp(string(data))
	if !strings.Contains(up, "matches_active_pair_idx") || !strings.Contains(up, "WHERE status = 'active'") {
		t.Fatalf("expected partial unique index on active matches")
	}
	if !strings.Contains(up, "vector(10)") {
		t.Fatalf("expected feature snapshot column")
	}
}
