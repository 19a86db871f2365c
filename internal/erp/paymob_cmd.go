package erp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s%s%s [y/N]: ", Yellow, prompt, Reset)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

type yesConfirmer struct{}

func (yesConfirmer) Confirm(string) (bool, error) { return true, nil }

// paymobCmd runs the "paymob" subcommands
type paymobCmd struct {
	client  *Client
	out     io.Writer
	confirm Confirmer
}

// CmdPaymob handles Paymob payment commands
func (c *Client) CmdPaymob(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: erp-paymob paymob <subcommand> [args...]")
		fmt.Println("Subcommands: actions, link, view, copy, email, status, test, setup")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  erp-paymob paymob actions SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob link SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob link SAL-ORD-2025-00001 --yes")
		fmt.Println("  erp-paymob paymob view SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob copy SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob email SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob status SAL-ORD-2025-00001")
		fmt.Println("  erp-paymob paymob status SAL-ORD-2025-00001 --watch=30s")
		fmt.Println("  erp-paymob paymob test")
		fmt.Println("  erp-paymob paymob setup")
		return nil
	}

	var confirm Confirmer = promptConfirmer{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	for _, arg := range args {
		if arg == "--yes" || arg == "-y" {
			confirm = yesConfirmer{}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := &paymobCmd{client: c, out: os.Stdout, confirm: confirm}
	return cmd.run(ctx, args)
}

func (p *paymobCmd) run(ctx context.Context, args []string) error {
	sub := args[0]
	rest := positional(args[1:])

	needOrder := func() (string, error) {
		if len(rest) < 1 {
			return "", fmt.Errorf("usage: erp-paymob paymob %s <sales_order>", sub)
		}
		return rest[0], nil
	}

	switch sub {
	case "actions":
		name, err := needOrder()
		if err != nil {
			return err
		}
		return p.actions(ctx, name)
	case "link", "view", "copy", "email":
		name, err := needOrder()
		if err != nil {
			return err
		}
		return p.orderAction(ctx, actionForCommand(sub), name)
	case "status":
		name, err := needOrder()
		if err != nil {
			return err
		}
		interval, err := parseWatch(args[1:])
		if err != nil {
			return err
		}
		if interval > 0 {
			return p.watch(ctx, name, interval)
		}
		return p.orderAction(ctx, ActionCheckStatus, name)
	case "test":
		return p.testConnection(ctx)
	case "setup":
		return p.setup(ctx)
	default:
		return fmt.Errorf("unknown paymob subcommand: %s", sub)
	}
}

func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			out = append(out, a)
		}
	}
	return out
}

func parseWatch(args []string) (time.Duration, error) {
	for _, arg := range args {
		if len(arg) > 8 && arg[:8] == "--watch=" {
			d, err := time.ParseDuration(arg[8:])
			if err != nil {
				return 0, fmt.Errorf("invalid watch interval: %s", arg[8:])
			}
			if d < time.Second {
				return 0, fmt.Errorf("watch interval must be at least 1s")
			}
			return d, nil
		}
	}
	return 0, nil
}

func actionForCommand(cmd string) Action {
	for a, spec := range actionSpecs {
		if spec.command == cmd {
			return a
		}
	}
	return ""
}

func (p *paymobCmd) actions(ctx context.Context, name string) error {
	so, err := p.client.GetSalesOrder(ctx, name)
	if err != nil {
		return err
	}
	_, roles, err := p.client.CurrentRoles(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "%sSales Order: %s%s (%s)\n", Cyan, so.Name, Reset, docStatusLabel(so.DocStatus))
	printActionMenu(p.out, AvailableActions(so, roles, p.client.Config.AdminRole))
	return nil
}

// orderAction checks the action is offered for the order, confirms it,
// runs it once and prints the resulting message.
func (p *paymobCmd) orderAction(ctx context.Context, a Action, name string) error {
	so, err := p.client.GetSalesOrder(ctx, name)
	if err != nil {
		return err
	}

	if !HasAction(AvailableActions(so, nil, p.client.Config.AdminRole), a) {
		return unavailableReason(a, so)
	}

	if a.NeedsConfirm() {
		ok, err := p.confirm.Confirm(a.ConfirmPrompt())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(p.out, "%sCancelled%s\n", Yellow, Reset)
			return nil
		}
	}

	out := p.client.ExecuteAction(ctx, a, so)
	printMessage(p.out, out.Message)
	if out.Err != nil {
		return &ReportedError{Err: out.Err}
	}

	if out.Reload {
		fresh, err := p.client.GetSalesOrder(ctx, name)
		if err != nil {
			p.client.Logger.Warn("reload after action failed", zap.String("sales_order", name), zap.Error(err))
			return nil
		}
		fmt.Fprintf(p.out, "\n  Paymob: %s | Link: %s\n", colorPaymentStatus(fresh), orNA(fresh.PaymobPaymentLink))
	}
	return nil
}

func (p *paymobCmd) requireAdmin(ctx context.Context, a string) error {
	user, roles, err := p.client.CurrentRoles(ctx)
	if err != nil {
		return err
	}
	if !IsAdmin(roles, p.client.Config.AdminRole) {
		return fmt.Errorf("%s: %w: %s lacks role %q", a, ErrActionUnavailable, user, p.client.Config.AdminRole)
	}
	return nil
}

func (p *paymobCmd) testConnection(ctx context.Context) error {
	if err := p.requireAdmin(ctx, ActionTestConnection.Label()); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "%sTesting Paymob connection...%s\n", Blue, Reset)
	out := p.client.ExecuteAction(ctx, ActionTestConnection, nil)
	printMessage(p.out, out.Message)
	if out.Err != nil {
		return &ReportedError{Err: out.Err}
	}
	return nil
}

func (p *paymobCmd) setup(ctx context.Context) error {
	if err := p.requireAdmin(ctx, "Setup Paymob Integration"); err != nil {
		return err
	}

	ok, err := p.confirm.Confirm("Install the Paymob custom fields on Sales Order?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(p.out, "%sCancelled%s\n", Yellow, Reset)
		return nil
	}

	if err := p.client.SetupPaymobIntegration(ctx); err != nil {
		printMessage(p.out, errorMessage("Error", err))
		return &ReportedError{Err: err}
	}
	printMessage(p.out, successMessage("Success", "Paymob integration setup completed successfully!"))
	return nil
}

// watch polls the payment status until it settles, the context ends, or
// a lookup fails. Output is printed only when the status changes.
func (p *paymobCmd) watch(ctx context.Context, name string, interval time.Duration) error {
	so, err := p.client.GetSalesOrder(ctx, name)
	if err != nil {
		return err
	}
	if !so.IsSubmitted() {
		return unavailableReason(ActionCheckStatus, so)
	}

	fmt.Fprintf(p.out, "%sWatching payment status of %s every %s (Ctrl+C to stop)%s\n", Blue, name, interval, Reset)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := "\x00"
	for {
		st, err := p.client.GetPaymentStatus(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			printMessage(p.out, errorMessage("Error", err))
			return &ReportedError{Err: err}
		}

		if st.PaymentStatus != last {
			last = st.PaymentStatus
			fmt.Fprintf(p.out, "\n[%s]\n", time.Now().Format("15:04:05"))
			printMessage(p.out, statusMessage(st))
		}
		if st.Settled() {
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintf(p.out, "%sStopped watching%s\n", Yellow, Reset)
			return nil
		case <-ticker.C:
		}
	}
}

func indicatorColor(i Indicator) string {
	switch i {
	case IndicatorGreen:
		return Green
	case IndicatorRed:
		return Red
	}
	return Blue
}

// printMessage writes a titled message, coloured by its indicator
func printMessage(w io.Writer, m Message) {
	color := indicatorColor(m.Indicator)
	mark := "•"
	switch m.Indicator {
	case IndicatorGreen:
		mark = "✓"
	case IndicatorRed:
		mark = "✗"
	}

	fmt.Fprintf(w, "%s%s %s%s\n", color, mark, m.Title, Reset)
	if m.Body != "" {
		fmt.Fprintf(w, "  %s\n", m.Body)
	}
	for _, f := range m.Fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Label, f.Value)
	}
}

// printActionMenu lists the actions with their CLI subcommands
func printActionMenu(w io.Writer, actions []Action) {
	if len(actions) == 0 {
		fmt.Fprintf(w, "\n  %sNo Paymob actions (order must be submitted)%s\n", Yellow, Reset)
		return
	}
	fmt.Fprintf(w, "\n  %sPaymob actions:%s\n", Yellow, Reset)
	for _, a := range actions {
		fmt.Fprintf(w, "    %s%-24s%s erp-paymob paymob %s\n", Green, a.Label(), Reset, a.Command())
	}
}
