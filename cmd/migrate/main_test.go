package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVersionFromFile(t *testing.T) {
	tests := []struct {
		name    string
		want    int64
		wantErr bool
	}{
		{"001_init.up.sql", 1, false},
		{"042_webhooks.up.sql", 42, false},
		{"init.up.sql", 0, true},
		{"abc_init.up.sql", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := versionFromFile(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("version = %d, want %d", got, tt.want)
			}
		})
	}
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestMigrationFiles_orderedUpOnly(t *testing.T) {
	dir := writeFiles(t, "010_later.up.sql", "002_webhooks.up.sql", "002_webhooks.down.sql", "001_init.up.sql", "README.md")

	got, err := migrationFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_init.up.sql", "002_webhooks.up.sql", "010_later.up.sql"}
	if len(got) != len(want) {
		t.Fatalf("got %d migrations, want %d: %+v", len(got), len(want), got)
	}
	for i, m := range got {
		if m.name != want[i] {
			t.Errorf("migration %d = %s, want %s", i, m.name, want[i])
		}
	}
}

func TestMigrationFiles_duplicateVersion(t *testing.T) {
	dir := writeFiles(t, "001_init.up.sql", "1_other.up.sql")
	if _, err := migrationFiles(dir); err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestMigrationFiles_repoMigrations(t *testing.T) {
	got, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) < 2 || got[0].version != 1 || got[1].version != 2 {
		t.Errorf("repository migrations = %+v", got)
	}
}
