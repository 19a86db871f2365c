package erp

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

const statusSuccess = "success"
const statusError = "error"

// MethodResult is the {status, message} reply of the Paymob methods
type MethodResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	PaymentLink string `json:"payment_link,omitempty"`
	Token       string `json:"token,omitempty"`
}

// PaymentStatus is the reply of get_payment_status
type PaymentStatus struct {
	Status        string     `json:"status,omitempty"`
	Message       string     `json:"message,omitempty"`
	OrderID       flexString `json:"paymob_order_id"`
	TransactionID flexString `json:"paymob_transaction_id"`
	PaymentStatus string     `json:"paymob_payment_status"`
	PaymentLink   string     `json:"paymob_payment_link"`
	PaymentEntry  string     `json:"paymob_payment_entry"`
}

// Settled reports whether the gateway reached a final state
func (s *PaymentStatus) Settled() bool {
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusFailed
}

func (c *Client) paymobMethod(name string) string {
	module := c.Config.PaymobModule
	if module == "" {
		module = DefaultPaymobModule
	}
	return module + "." + name
}

// callPaymob invokes a Paymob method that answers {status, message} and
// turns anything but status "success" into a RemoteError.
func (c *Client) callPaymob(ctx context.Context, name string, args map[string]interface{}) (*MethodResult, error) {
	method := c.paymobMethod(name)
	var res MethodResult
	if err := c.Call(ctx, method, args, &res); err != nil {
		return nil, err
	}
	if res.Status != statusSuccess {
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected response from %s", name)
		}
		c.Logger.Info("paymob method reported error", zap.String("method", name), zap.String("message", msg))
		return nil, &RemoteError{Method: name, Message: msg}
	}
	return &res, nil
}

// CreatePaymentLink asks the server to generate a Paymob link for the order
// and email it to the customer.
func (c *Client) CreatePaymentLink(ctx context.Context, salesOrder string) (*MethodResult, error) {
	return c.callPaymob(ctx, "create_payment_link", map[string]interface{}{
		"sales_order_name": salesOrder,
	})
}

// SendPaymentEmail re-sends the existing payment link to the customer
func (c *Client) SendPaymentEmail(ctx context.Context, salesOrder string) (*MethodResult, error) {
	return c.callPaymob(ctx, "send_payment_email", map[string]interface{}{
		"sales_order_name": salesOrder,
	})
}

// TestPaymobConnection checks the server's gateway credentials
func (c *Client) TestPaymobConnection(ctx context.Context) (*MethodResult, error) {
	return c.callPaymob(ctx, "test_paymob_connection", nil)
}

// GetPaymentStatus reads the Paymob fields of the order. A missing status
// field means success; only "error" is a failure.
func (c *Client) GetPaymentStatus(ctx context.Context, salesOrder string) (*PaymentStatus, error) {
	var st PaymentStatus
	err := c.Call(ctx, c.paymobMethod("get_payment_status"), map[string]interface{}{
		"sales_order_name": salesOrder,
	}, &st)
	if err != nil {
		return nil, err
	}
	if st.Status == statusError {
		msg := st.Message
		if msg == "" {
			msg = "unexpected response from get_payment_status"
		}
		return nil, &RemoteError{Method: "get_payment_status", Message: msg}
	}
	return &st, nil
}

// SetupPaymobIntegration installs the Paymob custom fields on Sales Order
func (c *Client) SetupPaymobIntegration(ctx context.Context) error {
	return c.Call(ctx, c.paymobMethod("setup_paymob_integration"), nil, nil)
}

// ExecuteAction runs a for so and builds the message to show. Confirmation
// is the caller's job. so may be nil only for ActionTestConnection.
func (c *Client) ExecuteAction(ctx context.Context, a Action, so *SalesOrder) Outcome {
	out := Outcome{Action: a}
	name := ""
	if so != nil {
		name = so.Name
	}
	c.Logger.Info("running payment action", zap.String("action", string(a)), zap.String("sales_order", name))

	switch a {
	case ActionCreateLink:
		if _, err := c.CreatePaymentLink(ctx, name); err != nil {
			out.Err = err
			out.Message = errorMessage("Error", err)
			return out
		}
		out.Message = successMessage("Success", actionSpecs[a].success)
		out.Reload = true

	case ActionViewLink:
		if so == nil || !so.HasPaymentLink() {
			out.Err = ErrNoPaymentLink
			out.Message = errorMessage("Error", ErrNoPaymentLink)
			return out
		}
		out.Message = Message{Title: "Payment Link", Body: so.PaymobPaymentLink, Link: so.PaymobPaymentLink, Indicator: IndicatorBlue}

	case ActionCopyLink:
		if so == nil || !so.HasPaymentLink() {
			out.Err = ErrNoPaymentLink
			out.Message = errorMessage("Error", ErrNoPaymentLink)
			return out
		}
		if err := clipboardWriteAll(so.PaymobPaymentLink); err != nil {
			c.Logger.Warn("clipboard write failed", zap.Error(err))
			out.Err = fmt.Errorf("failed to copy payment link: %w", err)
			out.Message = Message{Title: "Error", Body: "Failed to copy payment link", Indicator: IndicatorRed}
			return out
		}
		out.Message = successMessage("Success", actionSpecs[a].success)

	case ActionSendEmail:
		if _, err := c.SendPaymentEmail(ctx, name); err != nil {
			out.Err = err
			out.Message = errorMessage("Error", err)
			return out
		}
		out.Message = successMessage("Success", actionSpecs[a].success)

	case ActionCheckStatus:
		st, err := c.GetPaymentStatus(ctx, name)
		if err != nil {
			out.Err = err
			out.Message = errorMessage("Error", err)
			return out
		}
		out.Message = statusMessage(st)
		out.Reload = true

	case ActionTestConnection:
		res, err := c.TestPaymobConnection(ctx)
		if err != nil {
			out.Err = err
			out.Message = errorMessage("Connection Test Failed", err)
			return out
		}
		out.Message = successMessage("Connection Test Successful", res.Message)

	default:
		out.Err = fmt.Errorf("unknown action: %s", a)
		out.Message = errorMessage("Error", out.Err)
	}

	return out
}
