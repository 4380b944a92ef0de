package catalog_test

import (
	"testing"

	"github.com/xraph/curbside/catalog"
	"github.com/xraph/curbside/types"
)

func TestDefaultCatalog(t *testing.T) {
	c := catalog.Default()

	tests := []struct {
		slug       string
		category   catalog.Category
		unitPrice  types.Money
		setupFee   types.Money
		stickerFee types.Money
		recurring  bool
	}{
		{"base-fee", catalog.CategoryBaseFee, types.USD(2900), types.USD(0), types.USD(0), true},
		{"small-trash-can", catalog.CategoryBaseService, types.USD(2000), types.USD(6000), types.USD(2500), true},
		{"medium-trash-can", catalog.CategoryBaseService, types.USD(2500), types.USD(6500), types.USD(2500), true},
		{"large-trash-can", catalog.CategoryBaseService, types.USD(3000), types.USD(7000), types.USD(2500), true},
		{"recycling-can", catalog.CategoryBaseService, types.USD(1500), types.USD(5500), types.USD(2500), true},
		{"yard-waste-can", catalog.CategoryBaseService, types.USD(1800), types.USD(6000), types.USD(2500), true},
		{"extra-weekly-pickup", catalog.CategoryUpgrade, types.USD(1000), types.USD(0), types.USD(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			svc, ok := c.Find(tt.slug)
			if !ok {
				t.Fatalf("service %q not found", tt.slug)
			}
			if svc.Category != tt.category {
				t.Errorf("Category: got %s, want %s", svc.Category, tt.category)
			}
			if !svc.UnitPrice.Equal(tt.unitPrice) {
				t.Errorf("UnitPrice: got %v, want %v", svc.UnitPrice, tt.unitPrice)
			}
			if tt.setupFee.IsPositive() && !svc.SetupFee.Equal(tt.setupFee) {
				t.Errorf("SetupFee: got %v, want %v", svc.SetupFee, tt.setupFee)
			}
			if tt.stickerFee.IsPositive() && !svc.StickerFee.Equal(tt.stickerFee) {
				t.Errorf("StickerFee: got %v, want %v", svc.StickerFee, tt.stickerFee)
			}
			if svc.Recurring() != tt.recurring {
				t.Errorf("Recurring: got %v, want %v", svc.Recurring(), tt.recurring)
			}
		})
	}
}

func TestFindUnknownSlug(t *testing.T) {
	c := catalog.Default()
	if _, ok := c.Find("no-such-service"); ok {
		t.Error("expected miss for unknown slug")
	}
}

func TestHasEquipment(t *testing.T) {
	c := catalog.Default()

	svc, _ := c.Find("medium-trash-can")
	if !svc.HasEquipment() {
		t.Error("base service should track equipment")
	}

	fee, _ := c.Find("base-fee")
	if fee.HasEquipment() {
		t.Error("base fee should not track equipment")
	}

	up, _ := c.Find("backdoor-service")
	if up.HasEquipment() {
		t.Error("upgrade should not track equipment")
	}
}

func TestStandaloneNotRecurring(t *testing.T) {
	c := catalog.Default()
	svc, ok := c.Find("bulk-item-pickup")
	if !ok {
		t.Fatal("bulk-item-pickup not found")
	}
	if svc.Recurring() {
		t.Error("standalone service should not be recurring")
	}
}

func TestNewRejectsDuplicateSlug(t *testing.T) {
	_, err := catalog.New(
		catalog.Service{Slug: "base-fee", Name: "A", Category: catalog.CategoryBaseFee, UnitPrice: types.USD(100), Interval: catalog.IntervalMonth},
		catalog.Service{Slug: "base-fee", Name: "B", Category: catalog.CategoryBaseFee, UnitPrice: types.USD(200), Interval: catalog.IntervalMonth},
	)
	if err == nil {
		t.Fatal("expected duplicate slug error")
	}
}

func TestNewRejectsEmptySlug(t *testing.T) {
	_, err := catalog.New(
		catalog.Service{Name: "No Slug", Category: catalog.CategoryUpgrade, UnitPrice: types.USD(100), Interval: catalog.IntervalMonth},
	)
	if err == nil {
		t.Fatal("expected empty slug error")
	}
}

func TestServicesAssignedIDs(t *testing.T) {
	c := catalog.Default()
	for _, svc := range c.Services() {
		if svc.ID.IsNil() {
			t.Errorf("service %q has nil ID", svc.Slug)
		}
	}
}
