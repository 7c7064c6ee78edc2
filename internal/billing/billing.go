// Package billing holds the catalog of purchasable credit packs.
//
// The payments provider is external; the catalog only maps pack IDs to the
// provider's price identifiers and renders prices for display.
package billing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Errors returned by catalog operations.
var (
	ErrUnknownPack = errors.New("unknown pack")
	ErrInvalidPack = errors.New("invalid pack")
)

// Pack is a fixed bundle of credits sold at a fixed price.
type Pack struct {
	ID         string `json:"id" toml:"id"`
	Name       string `json:"name" toml:"name"`
	Credits    int    `json:"credits" toml:"credits"`
	PriceCents int64  `json:"priceCents" toml:"price_cents"`
	Currency   string `json:"currency" toml:"currency"`
	PriceID    string `json:"-" toml:"price_id"`
}

// Validate checks that the pack can be sold.
func (p Pack) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidPack)
	case p.Credits <= 0:
		return fmt.Errorf("%w %s: credits must be positive", ErrInvalidPack, p.ID)
	case p.PriceCents <= 0:
		return fmt.Errorf("%w %s: price must be positive", ErrInvalidPack, p.ID)
	case p.PriceID == "":
		return fmt.Errorf("%w %s: empty price id", ErrInvalidPack, p.ID)
	}
	if _, err := currency.ParseISO(p.Currency); err != nil {
		return fmt.Errorf("%w %s: currency %q: %v", ErrInvalidPack, p.ID, p.Currency, err)
	}
	return nil
}

// DisplayPrice formats the price for the given locale, e.g. "$ 9.99".
func (p Pack) DisplayPrice(tag language.Tag) string {
	unit, err := currency.ParseISO(p.Currency)
	if err != nil {
		return fmt.Sprintf("%d.%02d %s", p.PriceCents/100, p.PriceCents%100, p.Currency)
	}
	amount := unit.Amount(float64(p.PriceCents) / 100)
	return message.NewPrinter(tag).Sprint(currency.Symbol(amount))
}

// DefaultPacks is the catalog used when configuration names none.
func DefaultPacks() []Pack {
	return []Pack{
		{ID: "starter", Name: "Starter", Credits: 10, PriceCents: 900, Currency: "USD", PriceID: "price_starter"},
		{ID: "builder", Name: "Builder", Credits: 50, PriceCents: 3900, Currency: "USD", PriceID: "price_builder"},
		{ID: "studio", Name: "Studio", Credits: 200, PriceCents: 12900, Currency: "USD", PriceID: "price_studio"},
	}
}

// Catalog is an immutable list of packs.
type Catalog struct {
	packs []Pack
	byID  map[string]int
}

// NewCatalog validates packs and builds a catalog sorted by credits.
func NewCatalog(packs []Pack) (*Catalog, error) {
	c := &Catalog{
		packs: slices.Clone(packs),
		byID:  make(map[string]int, len(packs)),
	}
	for _, p := range c.packs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(c.packs, func(a, b Pack) int {
		if a.Credits != b.Credits {
			return a.Credits - b.Credits
		}
		return strings.Compare(a.ID, b.ID)
	})
	for i, p := range c.packs {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w %s: duplicate id", ErrInvalidPack, p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// List returns the packs ordered by credits.
func (c *Catalog) List() []Pack {
	return slices.Clone(c.packs)
}

// Len returns the number of packs.
func (c *Catalog) Len() int {
	return len(c.packs)
}

// Lookup returns the pack with the given ID.
func (c *Catalog) Lookup(id string) (Pack, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Pack{}, false
	}
	return c.packs[i], true
}

// PriceID returns the payments provider price for a pack.
func (c *Catalog) PriceID(id string) (string, error) {
	p, ok := c.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPack, id)
	}
	return p.PriceID, nil
}

// Holder publishes the current catalog to concurrent readers.
// Swap replaces it atomically on config reload.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder creates a holder with an initial catalog.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Catalog returns the current catalog.
func (h *Holder) Catalog() *Catalog {
	return h.current.Load()
}

// Swap installs c and returns the previous catalog.
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.current.Swap(c)
}
