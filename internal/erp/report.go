package erp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Report bucket names
const (
	BucketPaid    = PaymentStatusPaid
	BucketPending = PaymentStatusPending
	BucketFailed  = PaymentStatusFailed
	BucketNoLink  = "No link"
)

// reportBuckets are fetched in parallel, one request each
var reportBuckets = []struct {
	name   string
	filter []interface{}
}{
	{BucketPaid, []interface{}{"paymob_payment_status", "=", PaymentStatusPaid}},
	{BucketPending, []interface{}{"paymob_payment_status", "=", PaymentStatusPending}},
	{BucketFailed, []interface{}{"paymob_payment_status", "=", PaymentStatusFailed}},
	{BucketNoLink, []interface{}{"paymob_payment_link", "is", "not set"}},
}

// ReportBucket aggregates submitted orders sharing a payment state
type ReportBucket struct {
	Count  int
	Totals map[string]float64 // by currency
}

// CustomerStat holds the unpaid total of one customer
type CustomerStat struct {
	Name     string
	Orders   int
	Value    float64
	Currency string
}

// PaymobReport holds the collection metrics of submitted sales orders
type PaymobReport struct {
	Buckets     map[string]*ReportBucket
	TopUnpaid   []CustomerStat
	GeneratedAt time.Time

	// Errors (for partial data display)
	Errors []string

	unpaid []CustomerStat
}

// Bucket returns the named bucket, empty when it failed to load
func (r *PaymobReport) Bucket(name string) *ReportBucket {
	if b, ok := r.Buckets[name]; ok {
		return b
	}
	return &ReportBucket{Totals: map[string]float64{}}
}

// BuildPaymobReport loads every bucket concurrently. A failed bucket is
// recorded in Errors and the rest of the report is still returned.
func (c *Client) BuildPaymobReport(ctx context.Context) *PaymobReport {
	var wg sync.WaitGroup
	var mu sync.Mutex
	data := &PaymobReport{Buckets: map[string]*ReportBucket{}}

	for _, b := range reportBuckets {
		wg.Add(1)
		go func(name string, filter []interface{}) {
			defer wg.Done()
			c.fetchBucket(ctx, name, filter, data, &mu)
		}(b.name, b.filter)
	}
	wg.Wait()

	sort.Strings(data.Errors)
	data.TopUnpaid = topCustomers(data.unpaid, 5)
	data.unpaid = nil
	data.GeneratedAt = time.Now()
	return data
}

func (c *Client) fetchBucket(ctx context.Context, name string, filter []interface{}, data *PaymobReport, mu *sync.Mutex) {
	orders, err := c.ListSalesOrders(ctx, salesOrderListOptions{
		submitted: true,
		filters:   [][]interface{}{filter},
		limit:     -1,
	})
	if err != nil {
		mu.Lock()
		data.Errors = append(data.Errors, fmt.Sprintf("Failed to fetch %s orders: %v", strings.ToLower(name), err))
		mu.Unlock()
		return
	}

	bucket := &ReportBucket{Count: len(orders), Totals: map[string]float64{}}
	for _, so := range orders {
		bucket.Totals[so.Currency] += so.GrandTotal
	}

	var unpaid []CustomerStat
	if name == BucketPending || name == BucketFailed {
		unpaid = customerStats(orders)
	}

	mu.Lock()
	defer mu.Unlock()
	data.Buckets[name] = bucket
	data.unpaid = append(data.unpaid, unpaid...)
}

func customerStats(orders []SalesOrder) []CustomerStat {
	byCustomer := map[string]*CustomerStat{}
	var out []CustomerStat
	for _, so := range orders {
		key := so.Customer + "\x00" + so.Currency
		st, ok := byCustomer[key]
		if !ok {
			st = &CustomerStat{Name: so.Customer, Currency: so.Currency}
			byCustomer[key] = st
		}
		st.Orders++
		st.Value += so.GrandTotal
	}
	for _, st := range byCustomer {
		out = append(out, *st)
	}
	return out
}

// topCustomers merges stats for the same customer and currency and keeps the n largest
func topCustomers(stats []CustomerStat, n int) []CustomerStat {
	merged := map[string]*CustomerStat{}
	var keys []string
	for _, st := range stats {
		key := st.Name + "\x00" + st.Currency
		m, ok := merged[key]
		if !ok {
			cp := st
			merged[key] = &cp
			keys = append(keys, key)
			continue
		}
		m.Orders += st.Orders
		m.Value += st.Value
	}

	out := make([]CustomerStat, 0, len(keys))
	for _, k := range keys {
		out = append(out, *merged[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// fitName truncates name to width runes, marking the cut with "...", and
// pads it to width terminal cells.
func fitName(name string, width int) string {
	if r := []rune(name); len(r) > width {
		name = string(r[:width-3]) + "..."
	}
	if pad := width - lipgloss.Width(name); pad > 0 {
		name += strings.Repeat(" ", pad)
	}
	return name
}

// formatTotals renders per-currency totals in a stable order
func formatTotals(totals map[string]float64) string {
	if len(totals) == 0 {
		return "-"
	}
	currencies := make([]string, 0, len(totals))
	for cur := range totals {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	parts := make([]string, len(currencies))
	for i, cur := range currencies {
		parts[i] = FormatMoney(totals[cur], cur)
	}
	return strings.Join(parts, " + ")
}

// CmdReport prints the Paymob collections report
func (c *Client) CmdReport(args []string) error {
	if len(args) > 0 && args[0] != "summary" {
		fmt.Println("Usage: erp-paymob report [summary]")
		return nil
	}

	fmt.Printf("%sLoading report...%s\n", Blue, Reset)
	return c.writeReport(context.Background(), os.Stdout)
}

// writeReport builds and renders the report. It fails when no bucket could be loaded.
func (c *Client) writeReport(ctx context.Context, w io.Writer) error {
	data := c.BuildPaymobReport(ctx)
	c.renderReport(w, data)
	if len(data.Errors) == len(reportBuckets) {
		return fmt.Errorf("report unavailable: all %d order queries failed", len(reportBuckets))
	}
	return nil
}

func (c *Client) renderReport(w io.Writer, data *PaymobReport) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s══════════════════════════════════════════════════════════════%s\n", Cyan, Reset)
	fmt.Fprintf(w, "%s                   PAYMOB COLLECTIONS                         %s\n", Cyan, Reset)
	fmt.Fprintf(w, "%s══════════════════════════════════════════════════════════════%s\n", Cyan, Reset)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%sSubmitted orders by payment state:%s\n", Yellow, Reset)
	colors := map[string]string{BucketPaid: Green, BucketPending: Yellow, BucketFailed: Red, BucketNoLink: Blue}
	for _, b := range reportBuckets {
		bucket := data.Bucket(b.name)
		fmt.Fprintf(w, "  %s%-10s%s %5d   %s\n", colors[b.name], b.name, Reset, bucket.Count, formatTotals(bucket.Totals))
	}

	if len(data.TopUnpaid) > 0 {
		fmt.Fprintf(w, "\n%sLargest unpaid customers:%s\n", Yellow, Reset)
		for i, st := range data.TopUnpaid {
			fmt.Fprintf(w, "  %d. %s %3d orders  %s\n", i+1, fitName(st.Name, 30), st.Orders, FormatMoney(st.Value, st.Currency))
		}
	}

	modeStr := "VPN"
	if c.Mode == "internet" {
		modeStr = "Internet"
	}
	fmt.Fprintf(w, "\nGenerated: %s | Mode: %s%s%s\n", data.GeneratedAt.Format("2006-01-02 15:04:05"), Cyan, modeStr, Reset)

	if len(data.Errors) > 0 {
		fmt.Fprintf(w, "\n%sWarnings:%s\n", Yellow, Reset)
		for _, err := range data.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
	}
}
