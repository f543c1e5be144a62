package usecase

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"aes128-service/internal/domain"
)

// mockMigrationRepository はテスト用のモック。
type mockMigrationRepository struct {
	appliedMigrations map[string]*domain.Migration
	ensureCalls       int
	ensureErr         error
}

func newMockMigrationRepository() *mockMigrationRepository {
	return &mockMigrationRepository{
		appliedMigrations: make(map[string]*domain.Migration),
	}
}

func (m *mockMigrationRepository) EnsureTable(ctx context.Context) error {
	m.ensureCalls++
	return m.ensureErr
}

func (m *mockMigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.Migration, error) {
	var result []*domain.Migration
	for _, migration := range m.appliedMigrations {
		result = append(result, migration)
	}
	return result, nil
}

func (m *mockMigrationRepository) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	_, exists := m.appliedMigrations[version]
	return exists, nil
}

func (m *mockMigrationRepository) markApplied(versions ...string) {
	now := time.Now()
	for _, v := range versions {
		m.appliedMigrations[v] = &domain.Migration{
			Version:   v,
			AppliedAt: &now,
			Status:    domain.MigrationStatusApplied,
		}
	}
}

// testMigrations はテスト用のマイグレーションファイル群を返す。
func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_create_users.sql":    {Data: []byte("CREATE TABLE users (id INT);")},
		"002_create_posts.sql":    {Data: []byte("CREATE TABLE posts (id INT);")},
		"003_create_comments.sql": {Data: []byte("CREATE TABLE comments (id INT);")},
		"README.md":               {Data: []byte("not a migration")},
		"archive/000_old.sql":     {Data: []byte("INVALID")},
	}
}

// setupMigrationDB はschema_migrationsを持つインメモリSQLiteを作成する。
func setupMigrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// :memory: は接続ごとに別DBになるため1接続に固定
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("CREATE TABLE schema_migrations (version VARCHAR(14) PRIMARY KEY, applied_at DATETIME)").Error; err != nil {
		t.Fatalf("failed to create schema_migrations table: %v", err)
	}
	return db
}

func tableExists(t *testing.T, db *gorm.DB, table string) bool {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error; err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return count == 1
}

func TestMigrationService_ApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupMigrationDB(t)
	repo := newMockMigrationRepository()

	service := NewMigrationService(repo, db, testMigrations())

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied, got %d", count)
	}
	if repo.ensureCalls != 1 {
		t.Errorf("expected EnsureTable to be called once, got %d", repo.ensureCalls)
	}

	for _, table := range []string{"users", "posts", "comments"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s was not created", table)
		}
	}

	var recorded int64
	if err := db.Raw("SELECT COUNT(*) FROM schema_migrations").Scan(&recorded).Error; err != nil {
		t.Fatalf("failed to count schema_migrations: %v", err)
	}
	if recorded != 3 {
		t.Errorf("expected 3 recorded migrations, got %d", recorded)
	}
}

func TestMigrationService_ApplyMigrations_AlreadyApplied(t *testing.T) {
	ctx := context.Background()
	db := setupMigrationDB(t)
	repo := newMockMigrationRepository()
	repo.markApplied("001", "002")

	service := NewMigrationService(repo, db, testMigrations())

	count, err := service.ApplyMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	// 未適用のマイグレーションのみ実行される
	if count != 1 {
		t.Errorf("expected 1 migration applied, got %d", count)
	}
	if tableExists(t, db, "users") {
		t.Error("applied migration 001 was executed again")
	}
}

func TestMigrationService_ApplyMigrations_InvalidSQL(t *testing.T) {
	ctx := context.Background()
	db := setupMigrationDB(t)
	repo := newMockMigrationRepository()

	fsys := testMigrations()
	fsys["004_invalid.sql"] = &fstest.MapFile{Data: []byte("INVALID SQL SYNTAX;")}

	service := NewMigrationService(repo, db, fsys)

	count, err := service.ApplyMigrations(ctx)
	if !errors.Is(err, domain.ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied before failure, got %d", count)
	}

	var recorded int64
	db.Raw("SELECT COUNT(*) FROM schema_migrations WHERE version = '004'").Scan(&recorded)
	if recorded != 0 {
		t.Error("failed migration must not be recorded")
	}
}

func TestMigrationService_ApplyMigrations_InvalidFileName(t *testing.T) {
	db := setupMigrationDB(t)
	fsys := fstest.MapFS{
		"create_users.sql": {Data: []byte("CREATE TABLE users (id INT);")},
	}

	service := NewMigrationService(newMockMigrationRepository(), db, fsys)

	_, err := service.ApplyMigrations(context.Background())
	if !errors.Is(err, domain.ErrInvalidMigrationFile) {
		t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
	}
}

func TestMigrationService_ApplyMigrations_EnsureTableError(t *testing.T) {
	repo := newMockMigrationRepository()
	repo.ensureErr = errors.New("permission denied")

	service := NewMigrationService(repo, setupMigrationDB(t), testMigrations())

	count, err := service.ApplyMigrations(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if count != 0 {
		t.Errorf("expected 0 migrations applied, got %d", count)
	}
}

func TestMigrationService_GetMigrationStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMockMigrationRepository()
	repo.markApplied("001")

	service := NewMigrationService(repo, setupMigrationDB(t), testMigrations())

	migrations, err := service.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	expected := []struct {
		version string
		name    string
		status  domain.MigrationStatus
	}{
		{"001", "create_users", domain.MigrationStatusApplied},
		{"002", "create_posts", domain.MigrationStatusPending},
		{"003", "create_comments", domain.MigrationStatusPending},
	}
	for i, want := range expected {
		got := migrations[i]
		if got.Version != want.version || got.Name != want.name || got.Status != want.status {
			t.Errorf("migration %d: expected %+v, got %+v", i, want, got)
		}
	}
	if migrations[0].AppliedAt == nil {
		t.Error("expected AppliedAt for applied migration")
	}
	if migrations[1].AppliedAt != nil {
		t.Error("expected nil AppliedAt for pending migration")
	}
}

func TestParseMigrationFileName(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantErr     bool
	}{
		{"001_create_cipher_keys.sql", "001", "create_cipher_keys", false},
		{"20240101_init.sql", "20240101", "init", false},
		{"noversion.sql", "", "", true},
		{"_missing_version.sql", "", "", true},
		{"002_.sql", "", "", true},
		{"create_users.sql", "", "", true},
		{"abc_x.sql", "", "", true},
		{"1a_x.sql", "", "", true},
		{"-1_x.sql", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, err := parseMigrationFileName(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if version != tt.wantVersion || name != tt.wantName {
				t.Errorf("expected (%s, %s), got (%s, %s)", tt.wantVersion, tt.wantName, version, name)
			}
		})
	}
}

func TestMigrationService_ScanMigrationFiles_NumericOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"10_tenth.sql": {Data: []byte("SELECT 1;")},
		"9_ninth.sql":  {Data: []byte("SELECT 1;")},
		"002_two.sql":  {Data: []byte("SELECT 1;")},
		"1_one.sql":    {Data: []byte("SELECT 1;")},
	}
	service := NewMigrationService(newMockMigrationRepository(), nil, fsys)

	migrations, err := service.scanMigrationFiles()
	if err != nil {
		t.Fatalf("scanMigrationFiles failed: %v", err)
	}

	want := []string{"1", "002", "9", "10"}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("position %d: expected version %s, got %s", i, v, migrations[i].Version)
		}
	}
}
