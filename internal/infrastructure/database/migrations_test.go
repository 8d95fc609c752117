package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/homebus/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"0002_add_notes.sql": {Data: []byte("ALTER TABLE widgets ADD COLUMN notes TEXT;")},
		"0001_widgets.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"README.md":          {Data: []byte("not a migration")},
		"draft_widgets.sql":  {Data: []byte("this is not applied")},
		"0003.sql":           {Data: []byte("no description, skipped")},
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (name, notes) VALUES ('a', 'b')"); err != nil {
		t.Errorf("migrated schema unusable: %v", err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "0001" || applied[1].Version != "0002" {
		t.Errorf("AppliedMigrations() = %+v", applied)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	n, err = db.Migrate(ctx, testMigrations())
	if err != nil || n != 0 {
		t.Errorf("second Migrate() = %d, %v, want 0, nil", n, err)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["0002_add_notes.sql"] = &fstest.MapFile{Data: []byte("ALTER TABLE missing ADD COLUMN x TEXT;")}

	n, err := db.Migrate(ctx, fsys)
	if err == nil {
		t.Fatal("Migrate() with broken migration succeeded")
	}
	if n != 1 {
		t.Errorf("Migrate() applied %d before failing, want 1", n)
	}

	applied, _ := db.AppliedMigrations(ctx)
	if len(applied) != 1 {
		t.Errorf("recorded %d migrations, want 1", len(applied))
	}
}

func TestMigrate_Embedded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate(embedded) error = %v", err)
	}

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='command_log'",
	).Scan(&name)
	if err != nil {
		t.Errorf("command_log table not created: %v", err)
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	if n, err := db.Migrate(context.Background(), nil); err != nil || n != 0 {
		t.Errorf("Migrate(nil) = %d, %v", n, err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantDesc    string
		wantOK      bool
	}{
		{"0001_command_log.sql", "0001", "command_log", true},
		{"0010_add_index.sql", "0010", "add_index", true},
		{"0001_command_log.up.sql", "0001", "command_log.up", true},
		{"v1_initial.sql", "", "", false},
		{"0001.sql", "", "", false},
		{"0001_initial.txt", "", "", false},
		{"_initial.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, desc, ok := ParseMigrationFilename(tt.name)
			if version != tt.wantVersion || desc != tt.wantDesc || ok != tt.wantOK {
				t.Errorf("ParseMigrationFilename(%q) = %q, %q, %v, want %q, %q, %v",
					tt.name, version, desc, ok, tt.wantVersion, tt.wantDesc, tt.wantOK)
			}
		})
	}
}
