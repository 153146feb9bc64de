package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"glyph-wallet-go/internal/models"
)

func TestMemorySessionStoreRejectsHalfPair(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()

	if err := s.Save(ctx, models.Credentials{Token: "tok"}); !errors.Is(err, ErrIncompletePair) {
		t.Fatalf("expected ErrIncompletePair, got %v", err)
	}

	_, ok, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected no credentials after rejected save")
	}
}

func TestMemorySessionStoreSaveLoadClear(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()

	if err := s.Save(ctx, models.Credentials{Token: "tok", Nonce: "n1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	creds, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected credentials, got ok=%v err=%v", ok, err)
	}
	if creds.Token != "tok" || creds.Nonce != "n1" {
		t.Errorf("unexpected credentials %+v", creds)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := s.Load(ctx); ok {
		t.Error("expected credentials to be cleared")
	}
}

func TestMemoryTransferStore(t *testing.T) {
	s := NewMemoryTransferStore()
	ctx := context.Background()

	first := models.TransferActivity{Id: "1", Hash: "0xAA", From: "0x01", Status: models.TransferPending, CreatedAt: time.Now().Add(-time.Minute)}
	second := models.TransferActivity{Id: "2", Hash: "0xbb", From: "0x01", Status: models.TransferPending, CreatedAt: time.Now()}

	for _, a := range []models.TransferActivity{first, second} {
		if err := s.RecordTransfer(ctx, a); err != nil {
			t.Fatalf("RecordTransfer failed: %v", err)
		}
	}
	if err := s.RecordTransfer(ctx, first); !errors.Is(err, ErrDuplicateTransfer) {
		t.Errorf("expected ErrDuplicateTransfer, got %v", err)
	}

	if err := s.UpdateTransferStatus(ctx, "0xaa", models.TransferSuccess, "https://explorer/tx/0xaa"); err != nil {
		t.Fatalf("UpdateTransferStatus failed: %v", err)
	}
	got, err := s.GetTransfer(ctx, "0xAA")
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if got.Status != models.TransferSuccess || got.ExplorerUrl == "" {
		t.Errorf("unexpected activity %+v", got)
	}

	list, err := s.ListTransfers(ctx, "0x01", 10, 0)
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}
	if len(list) != 2 || list[0].Id != "2" {
		t.Errorf("expected newest first, got %+v", list)
	}

	if err := s.UpdateTransferStatus(ctx, "0xcc", models.TransferFailed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
