package erp

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type dashboardLoadedMsg struct {
	data *PaymobReport
}

// loadDashboard fetches the collections report
func (m Model) loadDashboard() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return dashboardLoadedMsg{client.BuildPaymobReport(context.Background())}
	}
}

// renderDashboard renders the dashboard view with scrollable viewport
func (m Model) renderDashboard() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading dashboard...", m.spinner.View())
	}

	if m.dashboardData == nil {
		return "\n  No data available"
	}

	if !m.viewportReady {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  ↑↓ scroll • %.0f%% ", m.viewport.ScrollPercent()*100)))
	}

	return b.String()
}

// renderDashboardContent returns the dashboard content for the viewport
func (m Model) renderDashboardContent() string {
	data := m.dashboardData
	if data == nil {
		return "No data available"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" PAYMOB COLLECTIONS "))
	b.WriteString("\n\n")

	b.WriteString(m.renderDashboardBuckets(data))
	b.WriteString("\n")
	b.WriteString(m.renderDashboardUnpaid(data))
	b.WriteString("\n\n")

	modeStr := "VPN"
	if m.client.Mode == "internet" {
		modeStr = "Internet"
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf("Updated: %s | Mode: %s", data.GeneratedAt.Format("2006-01-02 15:04:05"), modeStr)))

	if len(data.Errors) > 0 {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Warnings:"))
		for _, err := range data.Errors {
			b.WriteString(fmt.Sprintf("\n  - %s", err))
		}
	}

	return b.String()
}

func (m Model) renderDashboardBuckets(data *PaymobReport) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("SUBMITTED ORDERS"))
	b.WriteString("\n\n")

	badges := map[string]string{
		BucketPaid:    paidBadge.Render(fmt.Sprintf("%-8s", BucketPaid)),
		BucketPending: pendingBadge.Render(fmt.Sprintf("%-8s", BucketPending)),
		BucketFailed:  failedBadge.Render(fmt.Sprintf("%-8s", BucketFailed)),
		BucketNoLink:  noLinkBadge.Render(fmt.Sprintf("%-8s", BucketNoLink)),
	}
	for _, rb := range reportBuckets {
		bucket := data.Bucket(rb.name)
		b.WriteString(fmt.Sprintf("  %s %5d   %s\n", badges[rb.name], bucket.Count, formatTotals(bucket.Totals)))
	}

	return b.String()
}

func (m Model) renderDashboardUnpaid(data *PaymobReport) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render("LARGEST UNPAID CUSTOMERS"))
	b.WriteString("\n\n")

	if len(data.TopUnpaid) == 0 {
		b.WriteString(successStyle.Render("  Nothing outstanding") + "\n")
		return b.String()
	}
	for i, st := range data.TopUnpaid {
		b.WriteString(fmt.Sprintf("    %d. %s %3d orders  %s\n", i+1, fitName(st.Name, 25), st.Orders, FormatMoney(st.Value, st.Currency)))
	}

	return b.String()
}
