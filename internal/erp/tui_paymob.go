package erp

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// loadSalesOrders fetches the orders for the current list filter
func (m Model) loadSalesOrders() tea.Cmd {
	opts := m.listOptions
	return func() tea.Msg {
		orders, err := m.client.ListSalesOrders(context.Background(), opts)
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(orders))
		for i := range orders {
			so := &orders[i]
			status := listPaymentStatus(so)
			if status == "" {
				status = "no link"
			}
			detail := fmt.Sprintf("%s • %s • %s • Paymob: %s",
				so.Customer, so.TransactionDate, FormatMoney(so.GrandTotal, so.Currency), status)
			if !so.IsSubmitted() {
				detail += " [" + docStatusLabel(so.DocStatus) + "]"
			}
			items = append(items, ListItem{
				name:    so.Name,
				details: detail,
				date:    so.TransactionDate,
				amount:  so.GrandTotal,
				status:  listPaymentStatus(so),
			})
		}
		return ordersLoadedMsg{items}
	}
}

// loadSODetail fetches the order and, when one is linked, its payment entry
func (m Model) loadSODetail(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx := context.Background()
		so, err := client.GetSalesOrder(ctx, name)
		if err != nil {
			return errorMsg{err}
		}

		var pe *PaymentEntry
		if so.PaymobPaymentEntry != "" {
			pe, err = client.GetPaymentEntry(ctx, so.PaymobPaymentEntry)
			if err != nil {
				client.Logger.Warn("payment entry lookup failed",
					zap.String("sales_order", name), zap.String("payment_entry", so.PaymobPaymentEntry), zap.Error(err))
			}
		}
		return orderLoadedMsg{order: so, paymentEntry: pe}
	}
}

func (m Model) loadPaymentEntry(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		pe, err := client.GetPaymentEntry(context.Background(), name)
		if err != nil {
			return errorMsg{err}
		}
		return paymentEntryMsg{pe}
	}
}

// runAction executes a against so in the background
func (m Model) runAction(a Action, so *SalesOrder) tea.Cmd {
	client := m.client
	var order *SalesOrder
	if so != nil {
		cp := *so
		order = &cp
	}
	return func() tea.Msg {
		return actionDoneMsg{client.ExecuteAction(context.Background(), a, order)}
	}
}

func (m Model) runSetup() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return setupDoneMsg{client.SetupPaymobIntegration(context.Background())}
	}
}

// renderSODetail renders the sales order with its Paymob panel and actions
func (m Model) renderSODetail() string {
	if m.order == nil {
		if m.loading {
			return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
		}
		return "\n  No data"
	}

	so := m.order
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Sales Order: "+so.Name) + "\n\n")

	b.WriteString(fmt.Sprintf("  Customer: %s\n", so.Customer))
	b.WriteString(fmt.Sprintf("  Date: %s\n", so.TransactionDate))
	b.WriteString(fmt.Sprintf("  Status: %s (%s)\n", formatStatusBadge(so.Status), docStatusLabel(so.DocStatus)))
	b.WriteString(fmt.Sprintf("  Total: %s\n", FormatMoney(so.GrandTotal, so.Currency)))

	if len(so.Items) > 0 {
		b.WriteString("\n  Items:\n")
		for _, it := range so.Items {
			b.WriteString(fmt.Sprintf("    - %s: %.0f x %s\n", it.ItemCode, it.Qty, FormatMoney(it.Rate, so.Currency)))
		}
	}

	b.WriteString("\n  Paymob: " + renderStatusBadge(so) + "\n")
	b.WriteString(fmt.Sprintf("    Payment Link: %s\n", orNA(so.PaymobPaymentLink)))
	b.WriteString(fmt.Sprintf("    Order ID: %s\n", orNA(so.PaymobOrderID)))
	b.WriteString(fmt.Sprintf("    Transaction ID: %s\n", orNA(so.PaymobTransactionID)))
	b.WriteString(fmt.Sprintf("    Payment Entry: %s\n", orNA(so.PaymobPaymentEntry)))
	if pe := m.paymentEntry; pe != nil {
		b.WriteString(fmt.Sprintf("      %s received %s on %s\n",
			pe.Status, FormatMoney(pe.PaidAmount, pe.PaidToCurrency), pe.PostingDate))
	}

	b.WriteString("\n  Payment actions:\n")
	if len(m.actions) == 0 {
		b.WriteString(helpStyle.Render("    Submit the order to enable Paymob actions") + "\n")
	}
	for _, a := range m.actions {
		b.WriteString(fmt.Sprintf("    %s %s\n", selectedStyle.Render("["+a.Key()+"]"), a.Label()))
	}

	if m.loading {
		b.WriteString(fmt.Sprintf("\n  %s Working...", m.spinner.View()))
	}

	return boxStyle.Render(b.String())
}

// renderPaymentDetail renders the payment entry linked to the order
func (m Model) renderPaymentDetail() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}
	pe := m.paymentEntry
	if pe == nil {
		return "\n  No data"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Payment Entry: "+pe.Name) + "\n\n")
	b.WriteString(fmt.Sprintf("  Party: %s (%s)\n", pe.Party, pe.PartyType))
	b.WriteString(fmt.Sprintf("  Date: %s\n", pe.PostingDate))
	b.WriteString(fmt.Sprintf("  Status: %s\n", formatStatusBadge(pe.Status)))
	b.WriteString(fmt.Sprintf("  Paid Amount: %s\n", FormatMoney(pe.PaidAmount, pe.PaidToCurrency)))
	if pe.ModeOfPayment != "" {
		b.WriteString(fmt.Sprintf("  Mode of Payment: %s\n", pe.ModeOfPayment))
	}
	if pe.ReferenceNo != "" {
		b.WriteString(fmt.Sprintf("  Transaction: %s\n", pe.ReferenceNo))
	}
	if len(pe.References) > 0 {
		b.WriteString("\n  References:\n")
		for _, r := range pe.References {
			b.WriteString(fmt.Sprintf("    - %s %s: %s\n", r.ReferenceDoctype, r.ReferenceName,
				FormatMoney(r.AllocatedAmount, pe.PaidToCurrency)))
		}
	}

	return boxStyle.Render(b.String())
}
