package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucketOf reports which bucket a list query asks for
func bucketOf(q url.Values) string {
	var filters [][]interface{}
	_ = json.Unmarshal([]byte(q.Get("filters")), &filters)
	for _, f := range filters {
		if len(f) != 3 {
			continue
		}
		switch f[0] {
		case "paymob_payment_status":
			return f[2].(string)
		case "paymob_payment_link":
			return BucketNoLink
		}
	}
	return ""
}

func reportOrder(name, customer string, total float64, currency string) map[string]interface{} {
	return submittedOrder(name, map[string]interface{}{
		"customer":    customer,
		"grand_total": total,
		"currency":    currency,
	})
}

func TestBuildPaymobReport(t *testing.T) {
	f := newFakeFrappe(t)
	f.onList("Sales Order", func(q url.Values) (int, interface{}) {
		var rows []interface{}
		switch bucketOf(q) {
		case BucketPaid:
			rows = []interface{}{reportOrder("SO-1", "Acme", 100, "EGP"), reportOrder("SO-2", "Beta", 50, "USD")}
		case BucketPending:
			rows = []interface{}{reportOrder("SO-3", "Acme", 300, "EGP"), reportOrder("SO-4", "Gamma", 120, "EGP")}
		case BucketFailed:
			rows = []interface{}{reportOrder("SO-5", "Acme", 200, "EGP")}
		case BucketNoLink:
			return http.StatusInternalServerError, map[string]interface{}{
				"exc_type":  "OperationalError",
				"exception": "pymysql.err.OperationalError: lost connection",
			}
		}
		return http.StatusOK, map[string]interface{}{"data": rows}
	})

	data := f.client().BuildPaymobReport(context.Background())

	paid := data.Bucket(BucketPaid)
	assert.Equal(t, 2, paid.Count)
	assert.Equal(t, map[string]float64{"EGP": 100, "USD": 50}, paid.Totals)
	assert.Equal(t, 2, data.Bucket(BucketPending).Count)
	assert.Equal(t, 1, data.Bucket(BucketFailed).Count)

	noLink := data.Bucket(BucketNoLink)
	assert.Zero(t, noLink.Count)
	require.Len(t, data.Errors, 1)
	assert.Contains(t, data.Errors[0], "Failed to fetch no link orders")

	require.Len(t, data.TopUnpaid, 2)
	assert.Equal(t, CustomerStat{Name: "Acme", Orders: 2, Value: 500, Currency: "EGP"}, data.TopUnpaid[0])
	assert.Equal(t, "Gamma", data.TopUnpaid[1].Name)
	assert.False(t, data.GeneratedAt.IsZero())

	for _, call := range f.allCalls() {
		var filters [][]interface{}
		require.NoError(t, json.Unmarshal([]byte(call.Query.Get("filters")), &filters))
		assert.Contains(t, filters, []interface{}{"docstatus", "=", float64(1)}, "only submitted orders are counted")
		assert.Equal(t, "0", call.Query.Get("limit_page_length"))
	}
}

func TestTopCustomers(t *testing.T) {
	stats := []CustomerStat{
		{Name: "Beta", Orders: 1, Value: 100, Currency: "EGP"},
		{Name: "Acme", Orders: 1, Value: 60, Currency: "EGP"},
		{Name: "Acme", Orders: 2, Value: 60, Currency: "EGP"},
		{Name: "Acme", Orders: 1, Value: 10, Currency: "USD"},
		{Name: "Alpha", Orders: 1, Value: 100, Currency: "EGP"},
	}

	top := topCustomers(stats, 3)
	assert.Equal(t, []CustomerStat{
		{Name: "Acme", Orders: 3, Value: 120, Currency: "EGP"},
		{Name: "Alpha", Orders: 1, Value: 100, Currency: "EGP"},
		{Name: "Beta", Orders: 1, Value: 100, Currency: "EGP"},
	}, top)

	assert.Empty(t, topCustomers(nil, 5))
}

func TestFormatTotals(t *testing.T) {
	assert.Equal(t, "-", formatTotals(nil))
	assert.Equal(t, "EGP 10.00 + USD 2.50", formatTotals(map[string]float64{"USD": 2.5, "EGP": 10}))
}

func TestRenderReport(t *testing.T) {
	c := newFakeFrappe(t).client()
	data := &PaymobReport{
		Buckets: map[string]*ReportBucket{
			BucketPaid: {Count: 3, Totals: map[string]float64{"EGP": 900}},
		},
		TopUnpaid: []CustomerStat{{Name: "A very long customer name that overflows", Orders: 2, Value: 40, Currency: "EGP"}},
		Errors:    []string{"Failed to fetch failed orders: timeout"},
	}

	var buf bytes.Buffer
	c.renderReport(&buf, data)
	out := buf.String()
	assert.Contains(t, out, "PAYMOB COLLECTIONS")
	assert.Contains(t, out, "EGP 900.00")
	assert.Contains(t, out, "A very long customer name t...")
	assert.Contains(t, out, "Failed to fetch failed orders: timeout")
}

func TestFitName(t *testing.T) {
	long := fitName("شركة النيل للتجارة والاستيراد والتصدير المحدودة", 30)
	assert.True(t, utf8.ValidString(long))
	assert.Equal(t, 30, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "..."))

	short := fitName("النيل", 25)
	assert.Equal(t, 25, lipgloss.Width(short))
	assert.True(t, strings.HasPrefix(short, "النيل"))

	assert.Equal(t, "Acme      ", fitName("Acme", 10))
}

func TestWriteReport_FailsWhenNothingLoads(t *testing.T) {
	f := newFakeFrappe(t)
	f.onList("Sales Order", func(url.Values) (int, interface{}) {
		return http.StatusServiceUnavailable, map[string]interface{}{
			"exc_type":  "OperationalError",
			"exception": "pymysql.err.OperationalError: too many connections",
		}
	})

	var buf bytes.Buffer
	err := f.client().writeReport(context.Background(), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report unavailable")
	assert.Contains(t, buf.String(), "Warnings:")
}

func TestWriteReport_PartialDataSucceeds(t *testing.T) {
	f := newFakeFrappe(t)
	f.onList("Sales Order", func(q url.Values) (int, interface{}) {
		if bucketOf(q) == BucketFailed {
			return http.StatusServiceUnavailable, map[string]interface{}{"exception": "timeout"}
		}
		return http.StatusOK, map[string]interface{}{"data": []interface{}{}}
	})

	var buf bytes.Buffer
	require.NoError(t, f.client().writeReport(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Failed to fetch failed orders")
}
