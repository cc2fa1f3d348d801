package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/threadline/backoffice/internal/domain/cart"
	"github.com/threadline/backoffice/internal/domain/checkout"
	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/storage"
	"github.com/threadline/backoffice/internal/storage/jsonfile"
	"github.com/threadline/backoffice/internal/store"
	"github.com/threadline/backoffice/internal/summary"
)

type sessionConfig struct {
	summaryPath string
}

// session is the interactive back-office loop: one cart, one operator, line
// commands over stdin.
type session struct {
	store   *store.Store
	service *checkout.Service
	snaps   storage.Store
	cart    *cart.Cart
	lg      *zap.Logger
	cfg     sessionConfig
}

func newSession(st *store.Store, svc *checkout.Service, snaps storage.Store, lg *zap.Logger, cfg sessionConfig) *session {
	return &session{
		store:   st,
		service: svc,
		snaps:   snaps,
		cart:    cart.New(st.Catalog),
		lg:      lg,
		cfg:     cfg,
	}
}

const sessionHelp = `commands:
  product <sku> <price_cents>     add a catalog variant
  reprice <sku> <price_cents>     change a variant's price
  deactivate <sku>                retire a variant
  receive <sku> <qty>             add stock
  stock <sku>                     show stock level
  member <id> <tier> <name>       add a loyalty member
  scan <sku>                      add one unit to the cart
  cart                            show the cart
  clear                           empty the cart
  checkout [member_id]            finalize the sale
  return <order_id> <sku> <qty>   process a return
  orders                          list orders
  summary                         export the summary report
  backup <file>                   write a gzipped archive of the data files
  save                            persist state
  quit                            save and exit`

func (s *session) run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "backoffice ready; type 'help' for commands")

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		args := strings.Fields(line)
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		if err := s.dispatch(ctx, out, args); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	if err := s.snaps.SaveAll(ctx, s.store.Snapshot()); err != nil {
		s.lg.Error("Save on exit failed", zap.Error(err))
	}
	return sc.Err()
}

func (s *session) dispatch(ctx context.Context, out io.Writer, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(out, sessionHelp)
		return nil
	case "product":
		if len(args) != 3 {
			return fmt.Errorf("usage: product <sku> <price_cents>")
		}
		price, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad price %q", args[2])
		}
		if err := s.store.Catalog.Add(args[1], price); err != nil {
			return err
		}
		fmt.Fprintf(out, "added %s at %s\n", args[1], dollars(price))
		return nil
	case "reprice":
		if len(args) != 3 {
			return fmt.Errorf("usage: reprice <sku> <price_cents>")
		}
		price, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad price %q", args[2])
		}
		return s.store.Catalog.Reprice(args[1], price)
	case "deactivate":
		if len(args) != 2 {
			return fmt.Errorf("usage: deactivate <sku>")
		}
		return s.store.Catalog.Deactivate(args[1])
	case "receive":
		if len(args) != 3 {
			return fmt.Errorf("usage: receive <sku> <qty>")
		}
		qty, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad quantity %q", args[2])
		}
		level, err := s.store.Inventory.Receive(args[1], qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "received %d units of %s, stock now %d\n", qty, args[1], level)
		return nil
	case "stock":
		if len(args) != 2 {
			return fmt.Errorf("usage: stock <sku>")
		}
		fmt.Fprintf(out, "%s: %d\n", args[1], s.store.Inventory.Level(args[1]))
		return nil
	case "member":
		if len(args) < 4 {
			return fmt.Errorf("usage: member <id> <tier> <name>")
		}
		name := strings.Join(args[3:], " ")
		// ParseTier maps unknown input to raw uppercase; only known tiers
		// earn benefits.
		return s.store.Customers.Add(args[1], name, customer.ParseTier(args[2]), 0)
	case "scan":
		if len(args) != 2 {
			return fmt.Errorf("usage: scan <sku>")
		}
		if err := s.cart.Scan(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "cart total %s\n", dollars(s.cart.TotalCents()))
		return nil
	case "cart":
		s.printCart(out)
		return nil
	case "clear":
		s.cart.Clear()
		return nil
	case "checkout":
		memberID := ""
		if len(args) > 1 {
			memberID = args[1]
		}
		ord, err := s.service.FinalizeSale(ctx, s.cart, memberID)
		if err != nil {
			return err
		}
		s.printCart(out)
		fmt.Fprintf(out, "order %s finalized, total %s\n", ord.Code, dollars(ord.TotalCents))
		s.cart.Clear()
		return nil
	case "return":
		if len(args) != 4 {
			return fmt.Errorf("usage: return <order_id> <sku> <qty>")
		}
		orderID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q", args[1])
		}
		qty, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("bad quantity %q", args[3])
		}
		ret, err := s.service.ProcessReturn(ctx, orderID, []checkout.ReturnLine{{SKU: args[2], Qty: qty}})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "return order %s created, refund %s\n", ret.Code, dollars(ret.TotalCents))
		return nil
	case "orders":
		for _, o := range s.store.Orders.Orders() {
			fmt.Fprintf(out, "%s [%s] %s\n", o.Code, o.Status, dollars(o.TotalCents))
		}
		return nil
	case "summary":
		if err := summary.Export(s.store, s.cfg.summaryPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "summary written to %s\n", s.cfg.summaryPath)
		return nil
	case "backup":
		if len(args) != 2 {
			return fmt.Errorf("usage: backup <file>")
		}
		fs, ok := s.snaps.(*jsonfile.Store)
		if !ok {
			return fmt.Errorf("backup requires the JSON-file store")
		}
		if err := s.snaps.SaveAll(ctx, s.store.Snapshot()); err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		if err := fs.Archive(f); err != nil {
			return err
		}
		fmt.Fprintf(out, "backup written to %s\n", args[1])
		return nil
	case "save":
		return s.snaps.SaveAll(ctx, s.store.Snapshot())
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
}

func (s *session) printCart(out io.Writer) {
	for _, l := range s.cart.Lines() {
		fmt.Fprintf(out, "%s x %d - %s\n", l.SKU, l.Qty, dollars(l.Qty*l.UnitPriceCents))
	}
	fmt.Fprintf(out, "total: %s\n", dollars(s.cart.TotalCents()))
}

// dollars renders non-negative cents as a dollar amount.
func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
