package order

import "time"

// Book is the in-memory order ledger: orders and their items in insertion
// order, with monotonically assigned ids.
type Book struct {
	orders []Order
	items  []Item
	now    func() time.Time
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{now: time.Now}
}

// NextID returns the id the next order will be assigned: one past the
// highest id seen so far, so ids stay monotonic across reloads.
func (b *Book) NextID() int64 {
	var max int64
	for _, o := range b.orders {
		if o.ID > max {
			max = o.ID
		}
	}
	return max + 1
}

// New builds an order with the next sequential id and its derived code.
// The order is not stored until Append.
func (b *Book) New(memberID string, status Status, totalCents int64) (Order, error) {
	id := b.NextID()
	code, err := Code(id)
	if err != nil {
		return Order{}, err
	}
	return Order{
		ID:         id,
		Code:       code,
		MemberID:   memberID,
		Status:     status,
		TotalCents: totalCents,
		CreatedAt:  b.now(),
	}, nil
}

// Append stores an order together with its items as one unit. Item ids are
// assigned here, continuing the item sequence.
func (b *Book) Append(o Order, items []Item) {
	b.orders = append(b.orders, o)
	nextItem := b.nextItemID()
	for _, it := range items {
		it.ID = nextItem
		it.OrderID = o.ID
		nextItem++
		b.items = append(b.items, it)
	}
}

func (b *Book) nextItemID() int64 {
	var max int64
	for _, it := range b.items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Get returns the order with the given id.
func (b *Book) Get(id int64) (Order, error) {
	for _, o := range b.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, &NotFoundError{OrderID: id}
}

// ItemsOf returns the items belonging to the order, in insertion order.
func (b *Book) ItemsOf(orderID int64) []Item {
	var out []Item
	for _, it := range b.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

// ItemQty returns the quantity of the SKU in the order, 0 when the order has
// no item with that SKU.
func (b *Book) ItemQty(orderID int64, sku string) int64 {
	for _, it := range b.items {
		if it.OrderID == orderID && it.SKU == sku {
			return it.Qty
		}
	}
	return 0
}

// SetStatus transitions the order's status.
func (b *Book) SetStatus(orderID int64, status Status) error {
	for i := range b.orders {
		if b.orders[i].ID == orderID {
			b.orders[i].Status = status
			return nil
		}
	}
	return &NotFoundError{OrderID: orderID}
}

// Orders returns a copy of all orders in insertion order.
func (b *Book) Orders() []Order {
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Items returns a copy of all order items in insertion order.
func (b *Book) Items() []Item {
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// Restore replaces the book contents, used when loading persisted state.
func (b *Book) Restore(orders []Order, items []Item) {
	b.orders = make([]Order, len(orders))
	copy(b.orders, orders)
	b.items = make([]Item, len(items))
	copy(b.items, items)
}
