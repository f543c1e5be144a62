package repository

import (
	"context"
	"testing"
)

func TestMigrationRepository_EnsureTableAndQuery(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	// 2回目も成功する
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable (second call) failed: %v", err)
	}

	if err := db.Create(&SchemaMigrationModel{Version: "001"}).Error; err != nil {
		t.Fatalf("failed to insert migration: %v", err)
	}

	applied, err := repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if !applied {
		t.Error("expected 001 to be applied")
	}

	applied, err = repo.IsMigrationApplied(ctx, "002")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if applied {
		t.Error("expected 002 to be pending")
	}

	migrations, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(migrations) != 1 || migrations[0].Version != "001" || migrations[0].AppliedAt == nil {
		t.Errorf("unexpected applied migrations: %+v", migrations)
	}
}
