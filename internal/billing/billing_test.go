package billing

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func TestNewCatalog_SortsByCredits(t *testing.T) {
	packs := DefaultPacks()
	packs[0], packs[2] = packs[2], packs[0]

	c, err := NewCatalog(packs)
	if err != nil {
		t.Fatalf("NewCatalog error = %v", err)
	}

	var ids []string
	for _, p := range c.List() {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"starter", "builder", "studio"}, ids); diff != "" {
		t.Errorf("List order mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestNewCatalog_Invalid(t *testing.T) {
	valid := Pack{ID: "a", Credits: 1, PriceCents: 100, Currency: "USD", PriceID: "p"}
	tests := []struct {
		name  string
		packs []Pack
	}{
		{"empty id", []Pack{{Credits: 1, PriceCents: 1, Currency: "USD", PriceID: "p"}}},
		{"zero credits", []Pack{{ID: "a", PriceCents: 1, Currency: "USD", PriceID: "p"}}},
		{"zero price", []Pack{{ID: "a", Credits: 1, Currency: "USD", PriceID: "p"}}},
		{"no price id", []Pack{{ID: "a", Credits: 1, PriceCents: 1, Currency: "USD"}}},
		{"bad currency", []Pack{{ID: "a", Credits: 1, PriceCents: 1, Currency: "XXYZ", PriceID: "p"}}},
		{"duplicate", []Pack{valid, valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.packs)
			if !errors.Is(err, ErrInvalidPack) {
				t.Errorf("NewCatalog error = %v, want ErrInvalidPack", err)
			}
		})
	}
}

func TestCatalog_LookupAndPriceID(t *testing.T) {
	c, err := NewCatalog(DefaultPacks())
	if err != nil {
		t.Fatal(err)
	}

	p, ok := c.Lookup("builder")
	if !ok || p.Credits != 50 {
		t.Errorf("Lookup(builder) = %+v, %v", p, ok)
	}
	if _, ok := c.Lookup("nope"); ok {
		t.Error("Lookup(nope) should fail")
	}

	id, err := c.PriceID("studio")
	if err != nil || id != "price_studio" {
		t.Errorf("PriceID(studio) = %q, %v", id, err)
	}
	if _, err := c.PriceID("nope"); !errors.Is(err, ErrUnknownPack) {
		t.Errorf("PriceID(nope) error = %v, want ErrUnknownPack", err)
	}
}

func TestCatalog_ListIsCopy(t *testing.T) {
	c, _ := NewCatalog(DefaultPacks())
	list := c.List()
	list[0].Credits = 999

	if p, _ := c.Lookup(list[0].ID); p.Credits == 999 {
		t.Error("mutating List() result changed the catalog")
	}
}

func TestPack_DisplayPrice(t *testing.T) {
	p := Pack{ID: "a", Credits: 1, PriceCents: 999, Currency: "USD", PriceID: "p"}
	got := p.DisplayPrice(language.AmericanEnglish)
	if !strings.Contains(got, "9.99") || !strings.Contains(got, "$") {
		t.Errorf("DisplayPrice = %q, want dollars and 9.99", got)
	}

	p.Currency = "???"
	if got := p.DisplayPrice(language.English); got != "9.99 ???" {
		t.Errorf("DisplayPrice(bad currency) = %q", got)
	}
}

func TestHolder_Swap(t *testing.T) {
	first, _ := NewCatalog(DefaultPacks())
	second, _ := NewCatalog(DefaultPacks()[:1])

	h := NewHolder(first)
	if h.Catalog() != first {
		t.Fatal("Catalog() should return the initial catalog")
	}
	if prev := h.Swap(second); prev != first {
		t.Error("Swap should return the previous catalog")
	}
	if h.Catalog().Len() != 1 {
		t.Errorf("after Swap Len() = %d, want 1", h.Catalog().Len())
	}
}
