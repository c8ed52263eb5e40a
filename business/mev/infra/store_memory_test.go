package infra

import (
	"context"
	"math/big"
	"testing"
)

func TestMemoryStore_putBlockThenGetTimestampRoundTrips(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.PutBlock(ctx, 100, 1_700_000_000, big.NewInt(25_000_000_000)); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	ts, err := store.GetBlockTimestamp(ctx, 100)
	if err != nil {
		t.Fatalf("GetBlockTimestamp: %v", err)
	}
	if ts != 1_700_000_000 {
		t.Fatalf("expected timestamp 1700000000, got %d", ts)
	}
}

func TestMemoryStore_getBlockTimestampMissingIsNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetBlockTimestamp(context.Background(), 999); err == nil {
		t.Fatalf("expected an error for a missing block")
	}
}

func TestMemoryStore_getCexPointNearPicksClosestWithinWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.PutCexPoint(ctx, 1_700_000_000, 200_000_000_000, 6); err != nil {
		t.Fatalf("PutCexPoint: %v", err)
	}
	if err := store.PutCexPoint(ctx, 1_700_000_030, 201_000_000_000, 6); err != nil {
		t.Fatalf("PutCexPoint: %v", err)
	}

	point, ok, err := store.GetCexPointNear(ctx, 1_700_000_025, 60)
	if err != nil {
		t.Fatalf("GetCexPointNear: %v", err)
	}
	if !ok {
		t.Fatalf("expected a match within the window")
	}
	if point.TimestampS != 1_700_000_030 {
		t.Fatalf("expected the closer point at 1700000030, got %d", point.TimestampS)
	}
}

func TestMemoryStore_getCexPointNearOutsideWindowMisses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.PutCexPoint(ctx, 1_700_000_000, 200_000_000_000, 6); err != nil {
		t.Fatalf("PutCexPoint: %v", err)
	}

	_, ok, err := store.GetCexPointNear(ctx, 1_700_001_000, 60)
	if err != nil {
		t.Fatalf("GetCexPointNear: %v", err)
	}
	if ok {
		t.Fatalf("expected no match outside the staleness window")
	}
}
