package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database shared.
	db.SetMaxOpenConns(1)

	service := NewServiceFromDB(db)
	if err := service.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func TestSessionStore_EmptyLoad(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, ok, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected no credentials in a fresh database")
	}
}

func TestSessionStore_SaveLoadClear(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := service.Save(ctx, models.Credentials{Token: "jwt-1", Nonce: "nonce-1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Overwrite keeps a single pair.
	if err := service.Save(ctx, models.Credentials{Token: "jwt-2", Nonce: "nonce-2"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	creds, ok, err := service.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected credentials, got ok=%v err=%v", ok, err)
	}
	if creds.Token != "jwt-2" || creds.Nonce != "nonce-2" {
		t.Errorf("unexpected credentials %+v", creds)
	}

	if err := service.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := service.Load(ctx); ok {
		t.Error("expected credentials to be cleared")
	}
}

func TestSessionStore_TokenWithoutNonceIsAbsent(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.db.Exec(queryUpsertSessionValue, sessionTokenKey, "orphan", time.Now()); err != nil {
		t.Fatalf("Failed to seed orphan token: %v", err)
	}

	_, ok, err := service.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("a token without its nonce must not be returned")
	}

	if err := service.Save(ctx, models.Credentials{Token: "only-token"}); !errors.Is(err, store.ErrIncompletePair) {
		t.Errorf("expected ErrIncompletePair, got %v", err)
	}
}

func TestTransfers_RecordUpdateList(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	activity := models.TransferActivity{
		Hash:      "0xABCDEF",
		ChainId:   33139,
		From:      "0x00000000000000000000000000000000000000AA",
		To:        "0x00000000000000000000000000000000000000bb",
		Token:     "APE",
		AmountWei: "1000000000000000000",
		Status:    models.TransferPending,
	}
	if err := service.RecordTransfer(ctx, activity); err != nil {
		t.Fatalf("RecordTransfer failed: %v", err)
	}
	if err := service.RecordTransfer(ctx, activity); !errors.Is(err, store.ErrDuplicateTransfer) {
		t.Errorf("expected ErrDuplicateTransfer, got %v", err)
	}

	if err := service.UpdateTransferStatus(ctx, "0xabcdef", models.TransferSuccess, "https://apescan.io/tx/0xabcdef"); err != nil {
		t.Fatalf("UpdateTransferStatus failed: %v", err)
	}

	got, err := service.GetTransfer(ctx, "0xABCDEF")
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if got.Status != models.TransferSuccess {
		t.Errorf("expected SUCCESS, got %s", got.Status)
	}
	if got.ExplorerUrl != "https://apescan.io/tx/0xabcdef" {
		t.Errorf("unexpected explorer url %s", got.ExplorerUrl)
	}

	list, err := service.ListTransfers(ctx, "0x00000000000000000000000000000000000000aa", 10, 0)
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(list))
	}

	if _, err := service.GetTransfer(ctx, "0xmissing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := service.UpdateTransferStatus(ctx, "0xmissing", models.TransferFailed, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
