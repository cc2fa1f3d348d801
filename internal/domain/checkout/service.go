// Package checkout orchestrates sales and returns across the catalog,
// inventory ledger, customer directory, and order book. The service is the
// single writer for all of them: each operation validates everything first
// and only then mutates, so a failure leaves no partial state behind.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/threadline/backoffice/internal/domain/cart"
	"github.com/threadline/backoffice/internal/domain/catalog"
	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/loyalty"
	"github.com/threadline/backoffice/internal/domain/order"
)

// RefundPolicy selects the price used to compute return refunds.
type RefundPolicy string

const (
	// RefundCurrentPrice refunds at the catalog price in effect when the
	// return is processed. This mirrors the store's historical behaviour;
	// a SKU no longer in the catalog contributes nothing to the refund.
	RefundCurrentPrice RefundPolicy = "current_price"
	// RefundSalePrice refunds at the unit price recorded on the original
	// order's items.
	RefundSalePrice RefundPolicy = "sale_price"
)

// ParseRefundPolicy maps a config string to a RefundPolicy, defaulting to
// RefundCurrentPrice.
func ParseRefundPolicy(s string) RefundPolicy {
	if RefundPolicy(s) == RefundSalePrice {
		return RefundSalePrice
	}
	return RefundCurrentPrice
}

// IneligibleReturnError indicates a return request that failed validation:
// wrong order status, a SKU absent from the order, or an over-quantity
// request. The whole return is aborted with no side effects.
type IneligibleReturnError struct {
	OrderID int64
	SKU     string
	Reason  string
}

func (e *IneligibleReturnError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("return for order %d ineligible (%s): %s", e.OrderID, e.SKU, e.Reason)
	}
	return fmt.Sprintf("return for order %d ineligible: %s", e.OrderID, e.Reason)
}

// ReturnLine is a requested (SKU, quantity) pair in a return.
type ReturnLine struct {
	SKU string
	Qty int64
}

// Service ties the store's components together for checkout and returns.
type Service struct {
	catalog   *catalog.Catalog
	inventory *inventory.Ledger
	customers *customer.Directory
	orders    *order.Book

	refundPolicy RefundPolicy
	tracer       trace.Tracer

	salesFinalized   metric.Int64Counter
	returnsProcessed metric.Int64Counter
	pointsAwarded    metric.Int64Counter
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithRefundPolicy overrides the default current-price refund policy.
func WithRefundPolicy(p RefundPolicy) Option {
	return func(s *Service) { s.refundPolicy = p }
}

// WithTelemetry wires tracing and metrics into the service.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("checkout")
		meter := mp.Meter("checkout")
		s.salesFinalized, _ = meter.Int64Counter("backoffice.sales_finalized")
		s.returnsProcessed, _ = meter.Int64Counter("backoffice.returns_processed")
		s.pointsAwarded, _ = meter.Int64Counter("backoffice.points_awarded")
	}
}

// NewService creates the checkout orchestrator over the given components.
func NewService(
	cat *catalog.Catalog,
	inv *inventory.Ledger,
	customers *customer.Directory,
	orders *order.Book,
	opts ...Option,
) *Service {
	s := &Service{
		catalog:      cat,
		inventory:    inv,
		customers:    customers,
		orders:       orders,
		refundPolicy: RefundCurrentPrice,
	}
	WithTelemetry(tnoop.NewTracerProvider(), mnoop.NewMeterProvider())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FinalizeSale turns the cart into a PAID order: it applies the member's
// tier discount, issues stock for every line, records the order with its
// items, and awards loyalty points. An unknown member id is not an error;
// the sale simply carries no loyalty benefits. Any failure leaves the
// ledgers untouched.
func (s *Service) FinalizeSale(ctx context.Context, c *cart.Cart, memberID string) (order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "FinalizeSale")
	defer span.End()

	lines := c.Lines()
	if len(lines) == 0 {
		return order.Order{}, cart.ErrEmptyCart
	}

	subtotal := c.TotalCents()
	total := subtotal

	var member *customer.Customer
	if memberID != "" {
		if m, err := s.customers.Get(memberID); err == nil {
			member = m
			total -= loyalty.Discount(m.Tier, subtotal)
		}
	}

	// Every line must be coverable before anything is written.
	for _, l := range lines {
		if !s.inventory.InStock(l.SKU, l.Qty) {
			return order.Order{}, &inventory.InsufficientStockError{
				SKU:       l.SKU,
				Available: s.inventory.Level(l.SKU),
				Requested: l.Qty,
			}
		}
	}

	ord, err := s.orders.New(memberID, order.StatusPaid, total)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "allocate order")
	}

	mark := s.inventory.Mark()
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		if _, err := s.inventory.Issue(l.SKU, l.Qty); err != nil {
			s.inventory.RollbackTo(mark)
			return order.Order{}, errors.Wrapf(err, "issue %s", l.SKU)
		}
		items = append(items, order.Item{SKU: l.SKU, Qty: l.Qty, UnitPriceCents: l.UnitPriceCents})
	}

	var points int64
	if member != nil {
		points = loyalty.ForTier(member.Tier).Compute(total)
		if err := s.customers.Award(member.MemberID, points); err != nil {
			s.inventory.RollbackTo(mark)
			return order.Order{}, errors.Wrap(err, "award points")
		}
	}

	// Append cannot fail; it is the commit point of the sale.
	s.orders.Append(ord, items)

	s.salesFinalized.Add(ctx, 1)
	if points > 0 {
		s.pointsAwarded.Add(ctx, points, metric.WithAttributes(
			attribute.String("tier", string(member.Tier)),
		))
	}
	return ord, nil
}

// ProcessReturn validates a return against the original order, computes the
// refund per the configured policy, and records a linked RETURN order with
// its items and restocking movements. Any validation failure aborts the
// whole return with no side effects.
func (s *Service) ProcessReturn(ctx context.Context, orderID int64, returns []ReturnLine) (order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "ProcessReturn")
	defer span.End()

	orig, err := s.orders.Get(orderID)
	if err != nil {
		return order.Order{}, err
	}
	if orig.Status != order.StatusPaid {
		return order.Order{}, &IneligibleReturnError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("order status is %s", orig.Status),
		}
	}

	for _, rl := range returns {
		if rl.Qty <= 0 {
			return order.Order{}, order.ErrInvalidQuantity
		}
		sold := s.orders.ItemQty(orderID, rl.SKU)
		if sold == 0 {
			return order.Order{}, &IneligibleReturnError{
				OrderID: orderID,
				SKU:     rl.SKU,
				Reason:  "sku not in order",
			}
		}
		if rl.Qty > sold {
			return order.Order{}, &IneligibleReturnError{
				OrderID: orderID,
				SKU:     rl.SKU,
				Reason:  fmt.Sprintf("ordered %d, requested %d", sold, rl.Qty),
			}
		}
	}

	var refund int64
	unitPrices := make(map[string]int64, len(returns))
	for _, rl := range returns {
		price := s.refundUnitPrice(orderID, rl.SKU)
		unitPrices[rl.SKU] = price
		refund += price * rl.Qty
	}

	ret, err := s.orders.New(orig.MemberID, order.StatusReturn, refund)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "allocate return order")
	}
	ret.OriginalID = orderID

	mark := s.inventory.Mark()
	items := make([]order.Item, 0, len(returns))
	for _, rl := range returns {
		if err := s.inventory.Record(rl.SKU, rl.Qty); err != nil {
			s.inventory.RollbackTo(mark)
			return order.Order{}, errors.Wrapf(err, "restock %s", rl.SKU)
		}
		items = append(items, order.Item{SKU: rl.SKU, Qty: rl.Qty, UnitPriceCents: unitPrices[rl.SKU]})
	}

	s.orders.Append(ret, items)

	s.returnsProcessed.Add(ctx, 1)
	return ret, nil
}

// refundUnitPrice returns the per-unit refund for a SKU of the order. Under
// the current-price policy a SKU missing from the catalog refunds nothing.
func (s *Service) refundUnitPrice(orderID int64, sku string) int64 {
	if s.refundPolicy == RefundSalePrice {
		for _, it := range s.orders.ItemsOf(orderID) {
			if it.SKU == sku {
				return it.UnitPriceCents
			}
		}
		return 0
	}
	v, err := s.catalog.Get(sku)
	if err != nil {
		return 0
	}
	return v.PriceCents
}
