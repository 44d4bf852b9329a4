package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestCreateClaimMarksItemClaimed(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "bor", "hash", "bor@example.com", "Bor Kos", model.RoleUser)
	item, _ := CreateItem(ctx, database, model.KindFound, testInput("Blue umbrella", "Other", "2024-01-10", "Hall"), "", nil)

	claim, err := CreateClaim(ctx, database, item.ID, model.ClaimInput{
		Name:        "Bor Kos",
		Email:       "bor@example.com",
		Description: "It has a wooden handle",
	}, &user.ID)
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if claim.Status != model.ClaimStatusPending {
		t.Errorf("expected pending claim, got %q", claim.Status)
	}
	if claim.ItemName != "Blue umbrella" || claim.ItemKind != model.KindFound {
		t.Errorf("expected joined item fields, got %+v", claim)
	}
	if claim.OriginalContact != "Reporter" {
		t.Errorf("expected original contact 'Reporter', got %q", claim.OriginalContact)
	}
	if claim.UserID == nil || *claim.UserID != user.ID {
		t.Errorf("expected claim to record the user")
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusClaimed {
		t.Errorf("expected item to be claimed, got %q", got.Status)
	}

	// Claimed items leave the candidate pool.
	pool, _ := ListUnclaimedItems(ctx, database, model.KindFound)
	if len(pool) != 0 {
		t.Errorf("expected empty pool after claim, got %d", len(pool))
	}
}

func TestCreateClaimRejectsClaimedAndMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, model.KindLost, testInput("Ring", "Jewelry", "2024-01-10", "Pool"), "", nil)
	if _, err := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "A"}, nil); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	if _, err := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "B"}, nil); !errors.Is(err, ErrItemClaimed) {
		t.Errorf("expected ErrItemClaimed, got %v", err)
	}
	if _, err := CreateClaim(ctx, database, 999, model.ClaimInput{Name: "C"}, nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	claims, _ := ListClaims(ctx, database)
	if len(claims) != 1 {
		t.Errorf("expected exactly 1 claim, got %d", len(claims))
	}
}

func TestLatestClaimForItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, model.KindLost, testInput("Bag", "Bag", "2024-01-10", "Bus"), "", nil)

	none, err := LatestClaimForItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("LatestClaimForItem: %v", err)
	}
	if none != nil {
		t.Error("expected no claim yet")
	}

	first, _ := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "First"}, nil)

	// An admin can reopen the item, after which a second claim is possible.
	SetItemStatus(ctx, database, item.ID, model.ItemStatusUnclaimed)
	second, err := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "Second"}, nil)
	if err != nil {
		t.Fatalf("second claim after reopen: %v", err)
	}

	latest, _ := LatestClaimForItem(ctx, database, item.ID)
	if latest == nil || latest.ID != second.ID {
		t.Errorf("expected latest claim %d, got %+v (first was %d)", second.ID, latest, first.ID)
	}
}

func TestSetClaimStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, model.KindLost, testInput("Bag", "Bag", "2024-01-10", "Bus"), "", nil)
	claim, _ := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "A"}, nil)

	if err := SetClaimStatus(ctx, database, claim.ID, model.ClaimStatusApproved); err != nil {
		t.Fatalf("SetClaimStatus: %v", err)
	}
	got, _ := GetClaim(ctx, database, claim.ID)
	if got.Status != model.ClaimStatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}

	if err := SetClaimStatus(ctx, database, claim.ID, "maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := SetClaimStatus(ctx, database, 999, model.ClaimStatusRejected); !errors.Is(err, ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestCreateClaimReturnsStoredClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for i, name := range []string{"Keys", "Wallet", "Scarf"} {
		item, err := CreateItem(ctx, database, model.KindLost, testInput(name, "Other", "2024-01-10", "Hall"), "", nil)
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}

		claim, err := CreateClaim(ctx, database, item.ID, model.ClaimInput{Name: "Claimant " + name}, nil)
		if err != nil {
			t.Fatalf("CreateClaim %s: %v", name, err)
		}
		if claim == nil {
			t.Fatalf("CreateClaim %s returned no claim", name)
		}
		if claim.ID != int64(i+1) || claim.ItemID != item.ID {
			t.Errorf("claim %s: got id %d item %d, want id %d item %d", name, claim.ID, claim.ItemID, i+1, item.ID)
		}

		stored, err := GetClaim(ctx, database, claim.ID)
		if err != nil || stored == nil {
			t.Fatalf("GetClaim %d: %v", claim.ID, err)
		}
		if stored.Name != "Claimant "+name {
			t.Errorf("stored claim name = %q", stored.Name)
		}
	}
}
