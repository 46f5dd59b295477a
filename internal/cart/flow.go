// Package cart coordinates vendor selection, cart mutation, and order
// submission. The cart is in-memory, per-client state; it never survives a
// logout and it never outlives the process.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/pharmalink-go/internal/medications"
	"github.com/angelmondragon/pharmalink-go/internal/orders"
	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/pagination"
)

// State is the ordering flow's current phase.
type State string

const (
	StateBrowsing       State = "browsing"
	StateCartOpen       State = "cart_open"
	StateSubmitting     State = "submitting"
	StateOrderConfirmed State = "order_confirmed"
)

// Item is one cart line: a medication and a positive quantity. Every item in
// a non-empty cart shares the same vendor.
type Item struct {
	Medication models.Medication
	Quantity   int
}

// Confirmation is the view of a successfully placed order. Total comes from
// the server and supersedes any advisory total the cart displayed.
type Confirmation struct {
	OrderID string
	Total   float64
	Status  enums.OrderStatus
}

type submitter interface {
	Create(ctx context.Context, input orders.CreateInput) (*models.Order, error)
}

type catalog interface {
	ListByVendor(ctx context.Context, vendorID string, params pagination.Params) (*medications.ListResult, error)
}

type sessions interface {
	Clear(ctx context.Context) error
}

// CatalogListener receives the refreshed vendor catalog after a stock
// conflict so displayed quantities can be updated.
type CatalogListener func([]models.Medication)

// Flow is the cart/ordering state machine.
type Flow struct {
	orders submitter
	meds   catalog
	sess   sessions
	log    *logger.Logger

	mu        sync.Mutex
	state     State
	vendorID  string
	items     []Item
	onRefresh []CatalogListener
}

// NewFlow builds an ordering flow over the order and medication services.
func NewFlow(ord submitter, meds catalog, sess sessions, logg *logger.Logger) (*Flow, error) {
	if ord == nil || meds == nil {
		return nil, fmt.Errorf("order and medication services are required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Flow{orders: ord, meds: meds, sess: sess, log: logg, state: StateBrowsing}, nil
}

// State returns the flow's current phase.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// VendorID returns the vendor the cart currently belongs to, or "" for an
// empty cart.
func (f *Flow) VendorID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vendorID
}

// Items returns a copy of the cart lines in insertion order.
func (f *Flow) Items() []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Item, len(f.items))
	copy(out, f.items)
	return out
}

// Totals computes the advisory price breakdown for the current cart.
func (f *Flow) Totals() Totals {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Compute(f.items)
}

// OnCatalogRefresh registers a listener for post-conflict catalog refreshes.
func (f *Flow) OnCatalogRefresh(fn CatalogListener) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRefresh = append(f.onRefresh, fn)
}

// AddToCart adds one unit of a medication. Adding a medication from a
// different vendor than the cart's current one discards the existing cart,
// but only after confirm agrees; with no confirmation the cart is left
// untouched and a conflict error is returned. Adding a medication already in
// the cart increments its quantity.
func (f *Flow) AddToCart(med models.Medication, confirm func() bool) error {
	if med.ID == "" || med.VendorID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "medication is missing an id or vendor")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return pkgerrors.New(pkgerrors.CodeConflict, "order submission in progress")
	}

	if len(f.items) > 0 && med.VendorID != f.vendorID {
		if confirm == nil || !confirm() {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another vendor")
		}
		f.items = nil
	}

	f.vendorID = med.VendorID
	for i := range f.items {
		if f.items[i].Medication.ID == med.ID {
			f.items[i].Quantity++
			f.state = StateCartOpen
			return nil
		}
	}
	f.items = append(f.items, Item{Medication: med, Quantity: 1})
	f.state = StateCartOpen
	return nil
}

// RemoveFromCart removes one unit of a medication, dropping the line when its
// quantity reaches zero. Absent ids are a no-op.
func (f *Flow) RemoveFromCart(medicationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	for i := range f.items {
		if f.items[i].Medication.ID != medicationID {
			continue
		}
		f.items[i].Quantity--
		if f.items[i].Quantity <= 0 {
			f.items = append(f.items[:i], f.items[i+1:]...)
		}
		break
	}
	if len(f.items) == 0 {
		f.vendorID = ""
		f.state = StateBrowsing
	}
}

// ClearCart empties the cart and returns the flow to browsing.
func (f *Flow) ClearCart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.items = nil
	f.vendorID = ""
	f.state = StateBrowsing
}

// Browse acknowledges an order confirmation and returns to browsing.
func (f *Flow) Browse() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateOrderConfirmed {
		f.state = StateBrowsing
	}
}

// SubmitOrder places the current cart as an order. An empty cart is rejected
// locally before any network call. On success the cart is cleared and the
// flow holds the server-returned order. A stock conflict keeps the cart,
// refreshes the vendor's catalog, and returns the conflict for the caller to
// surface as a warning. An authentication failure that survived the
// gateway's own refresh forces a logout.
func (f *Flow) SubmitOrder(ctx context.Context, method enums.PaymentMethod, delivery models.DeliveryInfo) (*Confirmation, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	if len(f.items) == 0 {
		f.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if f.vendorID == "" {
		f.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no vendor selected")
	}

	input := orders.CreateInput{
		VendorID:      f.vendorID,
		Items:         make([]orders.CreateItem, 0, len(f.items)),
		PaymentMethod: method,
		DeliveryInfo:  delivery,
	}
	for _, item := range f.items {
		input.Items = append(input.Items, orders.CreateItem{
			MedicationID: item.Medication.ID,
			Quantity:     item.Quantity,
		})
	}
	vendorID := f.vendorID
	f.state = StateSubmitting
	f.mu.Unlock()

	order, err := f.orders.Create(ctx, input)
	if err != nil {
		return nil, f.submitFailed(ctx, vendorID, err)
	}

	f.mu.Lock()
	f.items = nil
	f.vendorID = ""
	f.state = StateOrderConfirmed
	f.mu.Unlock()

	f.log.Info(f.log.WithOrderID(ctx, order.ID), "order confirmed")
	return &Confirmation{OrderID: order.ID, Total: order.Total, Status: order.Status}, nil
}

// submitFailed maps a submission error back onto the state machine: the cart
// survives everything except a dead session.
func (f *Flow) submitFailed(ctx context.Context, vendorID string, err error) error {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		f.mu.Lock()
		f.state = StateCartOpen
		listeners := make([]CatalogListener, len(f.onRefresh))
		copy(listeners, f.onRefresh)
		f.mu.Unlock()
		f.refreshCatalog(ctx, vendorID, listeners)
		return err
	case pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized):
		f.mu.Lock()
		f.items = nil
		f.vendorID = ""
		f.state = StateBrowsing
		f.mu.Unlock()
		if clearErr := f.sess.Clear(ctx); clearErr != nil {
			f.log.Error(ctx, "clearing session after auth failure", clearErr)
		}
		return err
	default:
		f.mu.Lock()
		f.state = StateCartOpen
		f.mu.Unlock()
		return err
	}
}

func (f *Flow) refreshCatalog(ctx context.Context, vendorID string, listeners []CatalogListener) {
	res, err := f.meds.ListByVendor(ctx, vendorID, pagination.Params{})
	if err != nil {
		f.log.Warn(f.log.WithVendorID(ctx, vendorID), "stock refresh after conflict failed: "+err.Error())
		return
	}
	for _, fn := range listeners {
		fn(res.Medications)
	}
}
