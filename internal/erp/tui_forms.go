package erp

import (
	"fmt"
	"strings"
)

// renderConfirmAction renders the confirm action dialog
func (m Model) renderConfirmAction() string {
	content := fmt.Sprintf(`
  %s

  [y] Yes, proceed    [n] No, cancel
`, m.confirmMsg)

	return boxStyle.Render(content)
}

// renderMessage renders the dialog that reports an action's result
func (m Model) renderMessage() string {
	var b strings.Builder

	title := " " + m.dialog.Title + " "
	switch m.dialog.Indicator {
	case IndicatorGreen:
		b.WriteString(successStyle.Render("✓"+title) + "\n\n")
	case IndicatorRed:
		b.WriteString(errorStyle.Render("✗"+title) + "\n\n")
	default:
		b.WriteString(infoStyle.Render("•"+title) + "\n\n")
	}

	if m.dialog.Body != "" {
		b.WriteString("  " + m.dialog.Body + "\n")
	}
	for _, f := range m.dialog.Fields {
		b.WriteString(fmt.Sprintf("  %s: %s\n", f.Label, f.Value))
	}
	if m.dialog.Link != "" && m.dialog.Link != m.dialog.Body {
		b.WriteString("\n  " + m.dialog.Link + "\n")
	}

	return boxStyle.Render(b.String())
}

// setListTitle sets the title for the current list based on the filter
func (m *Model) setListTitle() {
	title := "Sales Orders"
	switch m.listOptions.paymentStatus {
	case PaymentStatusPending:
		title = "Awaiting Payment"
	case PaymentStatusPaid:
		title = "Paid Orders"
	}

	sortNames := []string{"newest", "oldest", "name", "total"}
	m.currentList.Title = fmt.Sprintf("%s (%s)", title, sortNames[m.sortOrder])
	m.currentList.Styles.Title = titleStyle
}

// renderListFooter summarises the loaded orders under the list
func (m Model) renderListFooter() string {
	if len(m.listItems) == 0 {
		return ""
	}

	var total float64
	counts := map[string]int{}
	for _, it := range m.listItems {
		total += it.amount
		counts[it.status]++
	}

	return helpStyle.Render(fmt.Sprintf("\n  %d orders • total %.2f • paid %d • pending %d • failed %d • no link %d",
		len(m.listItems), total,
		counts[PaymentStatusPaid], counts[PaymentStatusPending], counts[PaymentStatusFailed], counts[""]))
}

// formatStatusBadge returns a styled document status
func formatStatusBadge(status string) string {
	var style = helpStyle

	switch strings.ToLower(status) {
	case "draft":
		style = internetStyle
	case "completed", "to deliver and bill", "to bill", "to deliver", "submitted":
		style = successStyle
	case "cancelled", "closed":
		style = errorStyle
	case "on hold":
		style = vpnStyle
	}

	return style.Render(status)
}

// renderStatusBadge returns the Paymob payment status of so as a badge
func renderStatusBadge(so *SalesOrder) string {
	switch listPaymentStatus(so) {
	case PaymentStatusPaid:
		return paidBadge.Render(PaymentStatusPaid)
	case PaymentStatusFailed:
		return failedBadge.Render(PaymentStatusFailed)
	case PaymentStatusPending:
		return pendingBadge.Render(PaymentStatusPending)
	}
	return noLinkBadge.Render("No link")
}

// listPaymentStatus is the status shown for so; a link without a status counts as pending
func listPaymentStatus(so *SalesOrder) string {
	if so.PaymobPaymentStatus != "" {
		return so.PaymobPaymentStatus
	}
	if so.HasPaymentLink() {
		return PaymentStatusPending
	}
	return ""
}
