package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"procurement-flow/internal/adapters/web"
	"procurement-flow/internal/app"
	"procurement-flow/internal/core"

	"github.com/shopspring/decimal"
)

// Usage lists the available subcommands.
const Usage = `Available commands:
  orders [status]                       list purchase orders
  approve <po_id>                       issue a draft (manual approval)
  cancel-item <item_id> [reason]        cancel the open remainder of a line
  dashboard                             print the procurement overview
  settings get <key>                    print a stored setting
  settings set <key> <value>            validate and store a setting
  issue-token <material_id> <token> [default_qty]
  sign-jwt <user_id> [role] [ttl]       print a bearer token for the API`

// ErrUsage is returned for unknown commands and missing arguments.
var ErrUsage = errors.New("usage")

// Config holds what the CLI needs besides the service.
type Config struct {
	JWTSecret string
}

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command\n%s", ErrUsage, Usage)
	}

	switch args[0] {
	case "orders", "ls":
		var f core.PurchaseOrderFilter
		if len(args) > 1 {
			st, err := core.ParseStatus(args[1])
			if err != nil {
				return err
			}
			f.Status = &st
		}
		res, err := svc.ListPurchaseOrders(ctx, f)
		if err != nil {
			return err
		}
		printOrders(out, res)

	case "approve":
		id, err := intArg(args, 1, "po_id")
		if err != nil {
			return err
		}
		res, err := svc.IssuePurchaseOrder(ctx, id)
		if err != nil {
			return err
		}
		if !res.Issued {
			fmt.Fprintf(out, "Purchase order %d is %s; nothing to issue.\n", id, res.Order.Status)
			return nil
		}
		fmt.Fprintf(out, "Issued %s.\n", *res.Order.PONumber)
		printEffects(out, res.Effects)

	case "cancel-item":
		id, err := intArg(args, 1, "item_id")
		if err != nil {
			return err
		}
		reason := strings.Join(args[2:], " ")
		res, err := svc.CancelItem(ctx, app.CancelItemRequest{ItemID: id, Reason: reason})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Line %d: %s (canceled %s)\n", id, res.Outcome, res.QtyCanceled)
		if res.Order != nil {
			fmt.Fprintf(out, "Order %d is now %s, total %s\n", res.Order.ID, res.Order.Status, res.Order.Total.StringFixed(2))
		}

	case "dashboard", "dash":
		sum, err := svc.Dashboard(ctx)
		if err != nil {
			return err
		}
		printDashboard(out, sum)

	case "settings":
		if len(args) < 3 {
			return fmt.Errorf("%w: settings get <key> | settings set <key> <value>", ErrUsage)
		}
		switch args[1] {
		case "get":
			res, err := svc.GetSetting(ctx, args[2])
			if err != nil {
				return err
			}
			if !res.Found {
				fmt.Fprintf(out, "%s is not set\n", res.Key)
				return nil
			}
			fmt.Fprintf(out, "%s = %s\n", res.Key, res.Value)
		case "set":
			if len(args) < 4 {
				return fmt.Errorf("%w: settings set <key> <value>", ErrUsage)
			}
			res, err := svc.PutSetting(ctx, args[2], strings.Join(args[3:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s updated.\n", res.Key)
		default:
			return fmt.Errorf("%w: unknown settings action %q", ErrUsage, args[1])
		}

	case "issue-token":
		materialID, err := intArg(args, 1, "material_id")
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("%w: issue-token <material_id> <token> [default_qty]", ErrUsage)
		}
		in := core.IssueTokenInput{MaterialID: materialID, Token: args[2]}
		if len(args) > 3 {
			q, err := decimal.NewFromString(args[3])
			if err != nil {
				return fmt.Errorf("default_qty: %w", err)
			}
			in.DefaultQty = q
		}
		tok, err := svc.IssueOrderingToken(ctx, in)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tok)

	case "sign-jwt":
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		userID, err := intArg(args, 1, "user_id")
		if err != nil {
			return err
		}
		role := "buyer"
		if len(args) > 2 {
			role = args[2]
		}
		ttl := 24 * time.Hour
		if len(args) > 3 {
			if ttl, err = time.ParseDuration(args[3]); err != nil {
				return fmt.Errorf("ttl: %w", err)
			}
		}
		token, err := web.SignToken(cfg.JWTSecret, userID, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, token)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, args[0], Usage)
	}
	return nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: missing %s", ErrUsage, name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func printOrders(out io.Writer, res *app.PurchaseOrderListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-68s\n", "PURCHASE ORDERS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(res.Orders) == 0 {
		fmt.Fprintln(out, "  No purchase orders found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-6s %-15s %-10s %8s %12s  %s\n", "ID", "NUMBER", "STATUS", "SUPPLIER", "TOTAL", "EXPECTED")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, po := range res.Orders {
		number, expected := "-", "-"
		if po.PONumber != nil {
			number = *po.PONumber
		}
		if po.ExpectedDate != nil {
			expected = po.ExpectedDate.Format(time.DateOnly)
		}
		fmt.Fprintf(out, "  %-6d %-15s %-10s %8d %12s  %s\n",
			po.ID, number, po.Status, po.SupplierID, po.Total.StringFixed(2), expected)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printDashboard(out io.Writer, s *core.DashboardSummary) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  PROCUREMENT OVERVIEW  %s\n", s.GeneratedAt.Format(time.DateTime))
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  Open orders        : %d\n", s.OpenPOCount)
	fmt.Fprintf(out, "  Overdue            : %d\n", s.OverduePOCount)
	fmt.Fprintf(out, "  Due in 7 days      : %d\n", s.UpcomingPOCount7d)
	fmt.Fprintf(out, "  Issued this month  : %s\n", s.ThisMonthTotal.StringFixed(2))
	fmt.Fprintf(out, "  Critical low stock : %d\n", s.LowStockCritical)
	if len(s.LowStocks) > 0 {
		fmt.Fprintln(out, strings.Repeat("-", 62))
		fmt.Fprintf(out, "  %-12s %-25s %10s %10s\n", "SKU", "NAME", "STOCK", "SAFETY")
		for _, l := range s.LowStocks {
			fmt.Fprintf(out, "  %-12s %-25s %10s %10s\n", l.SKU, l.Name, l.Stock, l.SafetyStock)
		}
	}
	if len(s.TopSuppliers) > 0 {
		fmt.Fprintln(out, strings.Repeat("-", 62))
		for _, sp := range s.TopSuppliers {
			fmt.Fprintf(out, "  %-40s %19s\n", sp.Name, sp.Total.StringFixed(2))
		}
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printEffects(out io.Writer, effects core.Effects) {
	for _, e := range effects {
		switch {
		case e.Skipped:
			fmt.Fprintf(out, "  %s: skipped\n", e.Name)
		case e.Err != nil:
			fmt.Fprintf(out, "  %s: FAILED (%v)\n", e.Name, e.Err)
		default:
			fmt.Fprintf(out, "  %s: ok\n", e.Name)
		}
	}
}
