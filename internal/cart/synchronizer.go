package cart

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/example/duka-storefront/internal/api"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Backend is the slice of the storefront API the synchronizer needs.
// *api.Client satisfies it.
type Backend interface {
	GetCart(ctx context.Context) (*api.Cart, error)
	AddToCart(ctx context.Context, req api.AddToCartRequest) (*api.Cart, error)
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*api.Cart, error)
	RemoveCartItem(ctx context.Context, itemID int64) (*api.Cart, error)
	ClearCart(ctx context.Context) error
}

// Synchronizer is the single source of truth for the cart as perceived
// locally. Every mutation calls the server and adopts the returned cart
// wholesale (full-replace); nothing is patched locally, so a failed call
// leaves the previous snapshot untouched.
//
// Mutations are serialized through one lock, so the last response to
// resolve is also the last request issued and cannot silently overwrite
// an earlier mutation's effect.
type Synchronizer struct {
	backend Backend

	opMu sync.Mutex // serializes mutating calls end to end

	mu      sync.Mutex // guards cart and loading
	cart    *api.Cart
	loading bool

	refreshGroup singleflight.Group
}

func NewSynchronizer(backend Backend) *Synchronizer {
	return &Synchronizer{backend: backend}
}

// Refresh fetches the server cart and adopts it. Concurrent refreshes
// coalesce into one request. A failed refresh keeps the previous local
// state and is logged rather than surfaced; background refreshes have
// no caller to report to.
func (s *Synchronizer) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		cart, err := s.backend.GetCart(ctx)
		if err != nil {
			return nil, err
		}
		s.adopt(cart)
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to refresh cart")
	}
}

// AddItem adds a product line and adopts the server's new cart. Color
// and size are optional variant selectors, immutable once added.
// Quantity is assumed >= 1; product pages enforce that before calling.
func (s *Synchronizer) AddItem(ctx context.Context, productID int64, quantity int, color, size string) error {
	return s.mutate(func() (*api.Cart, error) {
		return s.backend.AddToCart(ctx, api.AddToCartRequest{
			ProductID:     productID,
			Quantity:      quantity,
			SelectedColor: color,
			SelectedSize:  size,
		})
	})
}

// UpdateItem replaces an item's quantity. Quantities below 1 are
// rejected before any network call.
func (s *Synchronizer) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.mutate(func() (*api.Cart, error) {
		return s.backend.UpdateCartItem(ctx, itemID, quantity)
	})
}

// RemoveItem deletes an item and adopts the server's new cart.
func (s *Synchronizer) RemoveItem(ctx context.Context, itemID int64) error {
	return s.mutate(func() (*api.Cart, error) {
		return s.backend.RemoveCartItem(ctx, itemID)
	})
}

// Clear empties the cart. The clear endpoint acks without a cart body,
// so on success the local state becomes a synthesized empty cart.
func (s *Synchronizer) Clear(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.backend.ClearCart(ctx); err != nil {
		return err
	}
	s.adopt(&api.Cart{Items: []api.CartItem{}, Total: 0})
	return nil
}

// ItemCount sums all item quantities; 0 when no cart is loaded.
func (s *Synchronizer) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return 0
	}
	count := 0
	for _, item := range s.cart.Items {
		count += item.Quantity
	}
	return count
}

// Total returns the server-reported cart total; 0 when no cart is loaded.
func (s *Synchronizer) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return 0
	}
	return s.cart.Total
}

// Empty reports whether the cart has no items (or no cart is loaded).
func (s *Synchronizer) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart == nil || len(s.cart.Items) == 0
}

// Loading reports whether a refresh is in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Snapshot returns a copy of the current cart, or nil when none is
// loaded. Callers get their own item slice; cart state only changes
// through the synchronizer's operations.
func (s *Synchronizer) Snapshot() *api.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil
	}
	snapshot := *s.cart
	snapshot.Items = append([]api.CartItem(nil), s.cart.Items...)
	return &snapshot
}

// OnAuthChange wires the synchronizer to the session gate: a logged-out
// user never has a visible cart, and a fresh login pulls the server's.
func (s *Synchronizer) OnAuthChange(authenticated bool) {
	if !authenticated {
		s.mu.Lock()
		s.cart = nil
		s.mu.Unlock()
		return
	}
	s.Refresh(context.Background())
}

func (s *Synchronizer) mutate(op func() (*api.Cart, error)) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	cart, err := op()
	if err != nil {
		return err
	}
	s.adopt(cart)
	return nil
}

func (s *Synchronizer) adopt(cart *api.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}
