package jsonfile

import (
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
)

// The file formats mirror the store's historical data files: movements,
// orders, and order items as arrays, customers as an object keyed by member
// id. Unknown keys are skipped so older files load cleanly.

func encodeMovements(movements []inventory.Movement) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	e.ArrStart()
	for _, m := range movements {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(m.ID.String())
		e.FieldStart("sku")
		e.Str(m.SKU)
		e.FieldStart("qty_change")
		e.Int64(m.QtyChange)
		e.FieldStart("recorded_at")
		e.Str(m.RecordedAt.Format(time.RFC3339Nano))
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeMovements(data []byte) ([]inventory.Movement, error) {
	var out []inventory.Movement
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var m inventory.Movement
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				s, err := d.Str()
				if err != nil {
					return err
				}
				id, err := uuid.Parse(s)
				if err != nil {
					return errors.Wrap(err, "movement id")
				}
				m.ID = id
				return nil
			case "sku":
				s, err := d.Str()
				m.SKU = s
				return err
			case "qty_change":
				n, err := d.Int64()
				m.QtyChange = n
				return err
			case "recorded_at":
				return decodeTime(d, &m.RecordedAt)
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

func encodeCustomers(customers map[string]customer.Customer) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	e.ObjStart()
	for _, id := range sortedKeys(customers) {
		c := customers[id]
		e.FieldStart(id)
		e.ObjStart()
		e.FieldStart("member_id")
		e.Str(c.MemberID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("tier")
		e.Str(string(c.Tier))
		e.FieldStart("points")
		e.Int64(c.Points)
		e.ObjEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

func decodeCustomers(data []byte) (map[string]customer.Customer, error) {
	out := make(map[string]customer.Customer)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, memberID string) error {
		var c customer.Customer
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "member_id":
				s, err := d.Str()
				c.MemberID = s
				return err
			case "name":
				s, err := d.Str()
				c.Name = s
				return err
			case "tier":
				s, err := d.Str()
				c.Tier = customer.ParseTier(s)
				return err
			case "points":
				n, err := d.Int64()
				c.Points = n
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		if c.MemberID == "" {
			c.MemberID = memberID
		}
		out[memberID] = c
		return nil
	})
	return out, err
}

func encodeOrders(orders []order.Order) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	e.ArrStart()
	for _, o := range orders {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(o.ID)
		e.FieldStart("order_code")
		e.Str(o.Code)
		e.FieldStart("member_id")
		e.Str(o.MemberID)
		e.FieldStart("status")
		e.Str(string(o.Status))
		e.FieldStart("total_cents")
		e.Int64(o.TotalCents)
		if o.OriginalID != 0 {
			e.FieldStart("original_id")
			e.Int64(o.OriginalID)
		}
		e.FieldStart("created_at")
		e.Str(o.CreatedAt.Format(time.RFC3339Nano))
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeOrders(data []byte) ([]order.Order, error) {
	var out []order.Order
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var o order.Order
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				n, err := d.Int64()
				o.ID = n
				return err
			case "order_code":
				s, err := d.Str()
				o.Code = s
				return err
			case "member_id":
				s, err := d.Str()
				o.MemberID = s
				return err
			case "status":
				s, err := d.Str()
				o.Status = order.Status(s)
				return err
			case "total_cents":
				n, err := d.Int64()
				o.TotalCents = n
				return err
			case "original_id":
				n, err := d.Int64()
				o.OriginalID = n
				return err
			case "created_at":
				return decodeTime(d, &o.CreatedAt)
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

func encodeItems(items []order.Item) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(it.ID)
		e.FieldStart("order_id")
		e.Int64(it.OrderID)
		e.FieldStart("sku")
		e.Str(it.SKU)
		e.FieldStart("qty")
		e.Int64(it.Qty)
		e.FieldStart("unit_price_cents")
		e.Int64(it.UnitPriceCents)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeItems(data []byte) ([]order.Item, error) {
	var out []order.Item
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var it order.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				n, err := d.Int64()
				it.ID = n
				return err
			case "order_id":
				n, err := d.Int64()
				it.OrderID = n
				return err
			case "sku":
				s, err := d.Str()
				it.SKU = s
				return err
			case "qty":
				n, err := d.Int64()
				it.Qty = n
				return err
			case "unit_price_cents":
				n, err := d.Int64()
				it.UnitPriceCents = n
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

func decodeTime(d *jx.Decoder, dst *time.Time) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return errors.Wrap(err, "timestamp")
	}
	*dst = t
	return nil
}

func sortedKeys(m map[string]customer.Customer) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
