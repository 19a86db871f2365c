package erp

import (
	"context"
	"fmt"
)

// PaymentReference represents a reference to an order or invoice in a Payment Entry
type PaymentReference struct {
	ReferenceDoctype  string  `json:"reference_doctype"`
	ReferenceName     string  `json:"reference_name"`
	TotalAmount       float64 `json:"total_amount"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	AllocatedAmount   float64 `json:"allocated_amount"`
}

// PaymentEntry represents an ERPNext Payment Entry. Paymob webhooks create
// one per captured transaction, with the transaction id as reference_no.
type PaymentEntry struct {
	Name           string             `json:"name,omitempty"`
	PaymentType    string             `json:"payment_type"`
	PartyType      string             `json:"party_type"`
	Party          string             `json:"party"`
	PaidAmount     float64            `json:"paid_amount"`
	PaidToAccount  string             `json:"paid_to,omitempty"`
	PaidToCurrency string             `json:"paid_to_account_currency,omitempty"`
	ModeOfPayment  string             `json:"mode_of_payment,omitempty"`
	ReferenceNo    string             `json:"reference_no,omitempty"`
	PostingDate    string             `json:"posting_date,omitempty"`
	Status         string             `json:"status,omitempty"`
	DocStatus      int                `json:"docstatus,omitempty"`
	References     []PaymentReference `json:"references,omitempty"`
}

// GetPaymentEntry loads a Payment Entry by name
func (c *Client) GetPaymentEntry(ctx context.Context, name string) (*PaymentEntry, error) {
	var pe PaymentEntry
	if err := c.GetDoc(ctx, "Payment Entry", name, &pe); err != nil {
		return nil, err
	}
	if pe.Name == "" {
		pe.Name = name
	}
	return &pe, nil
}

// CmdPayment handles Payment Entry commands
func (c *Client) CmdPayment(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: erp-paymob payment <subcommand> [args...]")
		fmt.Println("Subcommands: get")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  erp-paymob payment get ACC-PAY-2025-00001")
		return nil
	}

	switch args[0] {
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: erp-paymob payment get <name>")
		}
		return c.paymentGet(args[1])
	default:
		return fmt.Errorf("unknown payment subcommand: %s", args[0])
	}
}

func (c *Client) paymentGet(name string) error {
	fmt.Printf("%sFetching payment entry: %s%s\n", Blue, name, Reset)

	pe, err := c.GetPaymentEntry(context.Background(), name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sPayment Entry: %s%s\n", Cyan, pe.Name, Reset)

	typeStr := "Receive (from Customer)"
	if pe.PaymentType == "Pay" {
		typeStr = "Pay (to Supplier)"
	}
	fmt.Printf("  Type: %s\n", typeStr)
	fmt.Printf("  Party Type: %s\n", pe.PartyType)
	fmt.Printf("  Party: %s\n", pe.Party)
	fmt.Printf("  Date: %s\n", pe.PostingDate)

	statusColor := Yellow
	switch pe.Status {
	case "Submitted":
		statusColor = Green
	case "Cancelled":
		statusColor = Red
	}
	fmt.Printf("  Status: %s%s%s\n", statusColor, pe.Status, Reset)
	fmt.Printf("  Paid Amount: %s\n", FormatMoney(pe.PaidAmount, pe.PaidToCurrency))

	if pe.ModeOfPayment != "" {
		fmt.Printf("  Mode of Payment: %s\n", pe.ModeOfPayment)
	}
	if pe.ReferenceNo != "" {
		fmt.Printf("  Reference No: %s\n", pe.ReferenceNo)
	}

	if len(pe.References) > 0 {
		fmt.Printf("\n  %sReferences:%s\n", Yellow, Reset)
		for _, r := range pe.References {
			fmt.Printf("    - %s: %s (Allocated: %s)\n", r.ReferenceDoctype, r.ReferenceName,
				FormatMoney(r.AllocatedAmount, pe.PaidToCurrency))
		}
	}
	return nil
}
