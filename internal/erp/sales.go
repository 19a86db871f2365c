package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SalesOrderItem represents an item in a Sales Order
type SalesOrderItem struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name,omitempty"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// SalesOrder represents an ERPNext Sales Order with the Paymob custom fields
type SalesOrder struct {
	Name            string           `json:"name"`
	Customer        string           `json:"customer"`
	CustomerName    string           `json:"customer_name,omitempty"`
	TransactionDate string           `json:"transaction_date,omitempty"`
	DeliveryDate    string           `json:"delivery_date,omitempty"`
	Status          string           `json:"status,omitempty"`
	DocStatus       int              `json:"docstatus"`
	GrandTotal      float64          `json:"grand_total,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	ContactEmail    string           `json:"contact_email,omitempty"`
	Items           []SalesOrderItem `json:"items,omitempty"`

	PaymobPaymentLink     string `json:"paymob_payment_link,omitempty"`
	PaymobPaymentStatus   string `json:"paymob_payment_status,omitempty"`
	PaymobOrderID         string `json:"paymob_order_id,omitempty"`
	PaymobMerchantOrderID string `json:"paymob_merchant_order_id,omitempty"`
	PaymobTransactionID   string `json:"paymob_transaction_id,omitempty"`
	PaymobPaymentEntry    string `json:"paymob_payment_entry,omitempty"`
}

// UnmarshalJSON tolerates numeric gateway ids, which Frappe returns as
// numbers when the Data field was set from an integer.
func (so *SalesOrder) UnmarshalJSON(data []byte) error {
	type alias SalesOrder
	aux := struct {
		*alias
		PaymobOrderID       flexString `json:"paymob_order_id"`
		PaymobTransactionID flexString `json:"paymob_transaction_id"`
	}{alias: (*alias)(so)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	so.PaymobOrderID = string(aux.PaymobOrderID)
	so.PaymobTransactionID = string(aux.PaymobTransactionID)
	return nil
}

// IsSubmitted reports whether the order is submitted (docstatus 1)
func (so *SalesOrder) IsSubmitted() bool {
	return so.DocStatus == 1
}

// HasPaymentLink reports whether a Paymob link has been generated. Any
// non-empty value counts, whitespace included.
func (so *SalesOrder) HasPaymentLink() bool {
	return so.PaymobPaymentLink != ""
}

// IsPaid reports whether Paymob marked the order as paid
func (so *SalesOrder) IsPaid() bool {
	return so.PaymobPaymentStatus == PaymentStatusPaid
}

// flexString decodes JSON strings, numbers and null into a string
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// GetSalesOrder loads a Sales Order by name
func (c *Client) GetSalesOrder(ctx context.Context, name string) (*SalesOrder, error) {
	var so SalesOrder
	if err := c.GetDoc(ctx, "Sales Order", name, &so); err != nil {
		return nil, err
	}
	if so.Name == "" {
		so.Name = name
	}
	return &so, nil
}

type salesOrderListOptions struct {
	customer      string
	status        string
	paymentStatus string
	submitted     bool
	filters       [][]interface{} // extra raw filters
	limit         int             // 0 means the default page, negative means all
}

func parseSalesOrderListOptions(args []string) salesOrderListOptions {
	opts := salesOrderListOptions{limit: 100}
	for _, arg := range args {
		if len(arg) > 11 && arg[:11] == "--customer=" {
			opts.customer = arg[11:]
		}
		if len(arg) > 9 && arg[:9] == "--status=" {
			opts.status = arg[9:]
		}
		if len(arg) > 9 && arg[:9] == "--paymob=" {
			opts.paymentStatus = arg[9:]
		}
		if len(arg) > 8 && arg[:8] == "--limit=" {
			fmt.Sscanf(arg[8:], "%d", &opts.limit)
		}
	}
	return opts
}

var salesOrderListFields = `["name","customer","customer_name","transaction_date","status","docstatus","grand_total","currency","paymob_payment_link","paymob_payment_status"]`

// ListSalesOrders returns the most recent Sales Orders matching opts
func (c *Client) ListSalesOrders(ctx context.Context, opts salesOrderListOptions) ([]SalesOrder, error) {
	filters := [][]interface{}{}
	if opts.customer != "" {
		filters = append(filters, []interface{}{"customer", "like", fmt.Sprintf("%%%s%%", opts.customer)})
	}
	if opts.status != "" {
		filters = append(filters, []interface{}{"status", "=", opts.status})
	}
	if opts.paymentStatus != "" {
		filters = append(filters, []interface{}{"paymob_payment_status", "=", opts.paymentStatus})
	}
	if opts.submitted {
		filters = append(filters, []interface{}{"docstatus", "=", 1})
	}
	filters = append(filters, opts.filters...)

	limit := opts.limit
	switch {
	case limit < 0:
		limit = 0
	case limit == 0:
		limit = 100
	}
	endpoint := fmt.Sprintf("Sales%%20Order?limit_page_length=%d&fields=%s&order_by=creation%%20desc",
		limit, encodeFields(salesOrderListFields))
	if len(filters) > 0 {
		encoded, err := encodeFilters(filters)
		if err != nil {
			return nil, err
		}
		endpoint += "&filters=" + encoded
	}

	result, err := c.RequestContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result["data"])
	if err != nil {
		return nil, fmt.Errorf("failed to read sales orders: %w", err)
	}
	var orders []SalesOrder
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode sales orders: %w", err)
	}
	return orders, nil
}

// CmdSO handles Sales Order commands
func (c *Client) CmdSO(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: erp-paymob so <subcommand> [args...]")
		fmt.Println("Subcommands: list, get")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  erp-paymob so list")
		fmt.Println("  erp-paymob so list --customer=\"Acme\" --paymob=Pending")
		fmt.Println("  erp-paymob so get SAL-ORD-2025-00001")
		return nil
	}

	switch args[0] {
	case "list":
		return c.soList(parseSalesOrderListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: erp-paymob so get <name>")
		}
		return c.soGet(args[1])
	default:
		return fmt.Errorf("unknown so subcommand: %s", args[0])
	}
}

func (c *Client) soList(opts salesOrderListOptions) error {
	fmt.Printf("%sFetching sales orders...%s\n", Blue, Reset)

	orders, err := c.ListSalesOrders(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Printf("%sNo sales orders found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sSales Orders (%d):%s\n", Cyan, len(orders), Reset)
	for _, so := range orders {
		statusColor := Yellow
		switch so.Status {
		case "Completed", "To Deliver and Bill", "To Bill", "To Deliver":
			statusColor = Green
		case "Cancelled", "Closed":
			statusColor = Red
		}

		fmt.Printf("  %s - %s\n", so.Name, so.Customer)
		fmt.Printf("    Date: %s | Status: %s%s%s | Total: %s | Paymob: %s\n",
			so.TransactionDate, statusColor, so.Status, Reset,
			FormatMoney(so.GrandTotal, so.Currency), colorPaymentStatus(&so))
	}
	return nil
}

func (c *Client) soGet(name string) error {
	fmt.Printf("%sFetching sales order: %s%s\n", Blue, name, Reset)

	ctx := context.Background()
	so, err := c.GetSalesOrder(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sSales Order: %s%s\n", Cyan, so.Name, Reset)
	fmt.Printf("  Customer: %s\n", so.Customer)
	fmt.Printf("  Date: %s\n", so.TransactionDate)
	if so.DeliveryDate != "" {
		fmt.Printf("  Delivery Date: %s\n", so.DeliveryDate)
	}
	fmt.Printf("  Status: %s (%s)\n", so.Status, docStatusLabel(so.DocStatus))
	fmt.Printf("  Total: %s\n", FormatMoney(so.GrandTotal, so.Currency))

	if len(so.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		for _, it := range so.Items {
			fmt.Printf("    - %s: %.0f x %s = %s\n", it.ItemCode, it.Qty,
				FormatMoney(it.Rate, so.Currency), FormatMoney(it.Amount, so.Currency))
		}
	}

	fmt.Printf("\n  %sPaymob:%s\n", Yellow, Reset)
	fmt.Printf("    Payment Status: %s\n", colorPaymentStatus(so))
	fmt.Printf("    Payment Link: %s\n", orNA(so.PaymobPaymentLink))
	fmt.Printf("    Order ID: %s\n", orNA(so.PaymobOrderID))
	fmt.Printf("    Transaction ID: %s\n", orNA(so.PaymobTransactionID))
	fmt.Printf("    Payment Entry: %s\n", orNA(so.PaymobPaymentEntry))

	_, roles, err := c.CurrentRoles(ctx)
	if err != nil {
		return err
	}
	printActionMenu(os.Stdout, AvailableActions(so, roles, c.Config.AdminRole))
	return nil
}

func docStatusLabel(docStatus int) string {
	switch docStatus {
	case 0:
		return "Draft"
	case 1:
		return "Submitted"
	case 2:
		return "Cancelled"
	}
	return fmt.Sprintf("docstatus %d", docStatus)
}

func colorPaymentStatus(so *SalesOrder) string {
	switch so.PaymobPaymentStatus {
	case PaymentStatusPaid:
		return Green + so.PaymobPaymentStatus + Reset
	case PaymentStatusFailed:
		return Red + so.PaymobPaymentStatus + Reset
	case "":
		if so.HasPaymentLink() {
			return Yellow + PaymentStatusPending + Reset
		}
		return "-"
	}
	return Yellow + so.PaymobPaymentStatus + Reset
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// FormatMoney renders an amount with its currency code
func FormatMoney(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}
