package erp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableActions(t *testing.T) {
	const link = "https://accept.paymob.com/api/acceptance/iframes/1?payment_token=abc"
	admin := NewRoleSet("Sales User", "System Manager")
	clerk := NewRoleSet("Sales User")

	tests := []struct {
		name     string
		order    *SalesOrder
		roles    RoleSet
		expected []Action
	}{
		{
			name:     "draft order has no actions",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 0},
			roles:    admin,
			expected: nil,
		},
		{
			name:     "cancelled order has no actions",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 2, PaymobPaymentLink: link},
			roles:    admin,
			expected: nil,
		},
		{
			name:     "nil order has no actions",
			order:    nil,
			roles:    admin,
			expected: nil,
		},
		{
			name:     "submitted without link",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1},
			roles:    clerk,
			expected: []Action{ActionCreateLink, ActionCheckStatus},
		},
		{
			name:     "whitespace link still counts as set",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1, PaymobPaymentLink: "  "},
			roles:    clerk,
			expected: []Action{ActionViewLink, ActionCopyLink, ActionSendEmail, ActionCheckStatus},
		},
		{
			name:     "submitted with pending link",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1, PaymobPaymentLink: link, PaymobPaymentStatus: PaymentStatusPending},
			roles:    clerk,
			expected: []Action{ActionViewLink, ActionCopyLink, ActionSendEmail, ActionCheckStatus},
		},
		{
			name:     "failed payment can be emailed again",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1, PaymobPaymentLink: link, PaymobPaymentStatus: PaymentStatusFailed},
			roles:    clerk,
			expected: []Action{ActionViewLink, ActionCopyLink, ActionSendEmail, ActionCheckStatus},
		},
		{
			name:     "paid order hides email",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1, PaymobPaymentLink: link, PaymobPaymentStatus: PaymentStatusPaid},
			roles:    clerk,
			expected: []Action{ActionViewLink, ActionCopyLink, ActionCheckStatus},
		},
		{
			name:     "admin gets connection test",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1},
			roles:    admin,
			expected: []Action{ActionCreateLink, ActionCheckStatus, ActionTestConnection},
		},
		{
			name:     "administrator holds every role",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1, PaymobPaymentLink: link, PaymobPaymentStatus: PaymentStatusPaid},
			roles:    NewRoleSet("Administrator"),
			expected: []Action{ActionViewLink, ActionCopyLink, ActionCheckStatus, ActionTestConnection},
		},
		{
			name:     "no roles known",
			order:    &SalesOrder{Name: "SO-1", DocStatus: 1},
			roles:    nil,
			expected: []Action{ActionCreateLink, ActionCheckStatus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AvailableActions(tt.order, tt.roles, DefaultAdminRole))
		})
	}
}

func TestAvailableActions_Properties(t *testing.T) {
	links := []string{"", "https://pay.example/x"}
	statuses := []string{"", PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed}

	for _, link := range links {
		for _, status := range statuses {
			so := &SalesOrder{DocStatus: 1, PaymobPaymentLink: link, PaymobPaymentStatus: status}
			actions := AvailableActions(so, nil, "")

			hasLink := link != ""
			assert.Equal(t, !hasLink, HasAction(actions, ActionCreateLink), "create iff no link (%q, %q)", link, status)
			assert.Equal(t, hasLink, HasAction(actions, ActionViewLink), "view iff link (%q, %q)", link, status)
			assert.Equal(t, hasLink, HasAction(actions, ActionCopyLink), "copy iff link (%q, %q)", link, status)
			assert.Equal(t, hasLink && status != PaymentStatusPaid, HasAction(actions, ActionSendEmail), "email (%q, %q)", link, status)
			assert.True(t, HasAction(actions, ActionCheckStatus))
		}
	}
}

func TestAvailableActions_CustomAdminRole(t *testing.T) {
	so := &SalesOrder{DocStatus: 1}

	assert.False(t, HasAction(AvailableActions(so, NewRoleSet("System Manager"), "Accounts Manager"), ActionTestConnection))
	assert.True(t, HasAction(AvailableActions(so, NewRoleSet("Accounts Manager"), "Accounts Manager"), ActionTestConnection))
}

func TestActionMetadata(t *testing.T) {
	assert.Equal(t, "Are you sure you want to create a payment link for this Sales Order?", ActionCreateLink.ConfirmPrompt())
	assert.Equal(t, "Are you sure you want to send the payment email to the customer?", ActionSendEmail.ConfirmPrompt())

	for _, a := range []Action{ActionViewLink, ActionCopyLink, ActionCheckStatus, ActionTestConnection} {
		assert.False(t, a.NeedsConfirm(), a)
	}
	assert.True(t, ActionCreateLink.ReloadsOrder())
	assert.True(t, ActionCheckStatus.ReloadsOrder())
	assert.False(t, ActionSendEmail.ReloadsOrder())

	keys := map[string]Action{}
	commands := map[string]Action{}
	for a := range actionSpecs {
		require.NotEmpty(t, a.Key())
		_, dup := keys[a.Key()]
		assert.False(t, dup, "duplicate key %s", a.Key())
		keys[a.Key()] = a
		_, dup = commands[a.Command()]
		assert.False(t, dup, "duplicate command %s", a.Command())
		commands[a.Command()] = a
	}
}

func TestActionByKey(t *testing.T) {
	actions := []Action{ActionViewLink, ActionCopyLink, ActionCheckStatus}

	a, ok := ActionByKey(actions, "y")
	assert.True(t, ok)
	assert.Equal(t, ActionCopyLink, a)

	_, ok = ActionByKey(actions, "c")
	assert.False(t, ok, "create is not offered")
}

func TestUnavailableReason(t *testing.T) {
	draft := &SalesOrder{DocStatus: 0}
	noLink := &SalesOrder{DocStatus: 1}
	paid := &SalesOrder{DocStatus: 1, PaymobPaymentLink: "https://pay.example/x", PaymobPaymentStatus: PaymentStatusPaid}

	assert.True(t, errors.Is(unavailableReason(ActionCreateLink, draft), ErrNotSubmitted))
	assert.True(t, errors.Is(unavailableReason(ActionViewLink, noLink), ErrNoPaymentLink))
	assert.True(t, errors.Is(unavailableReason(ActionSendEmail, noLink), ErrNoPaymentLink))
	assert.True(t, errors.Is(unavailableReason(ActionSendEmail, paid), ErrActionUnavailable))
	assert.True(t, errors.Is(unavailableReason(ActionCreateLink, paid), ErrActionUnavailable))
	assert.Contains(t, unavailableReason(ActionSendEmail, paid).Error(), "already paid")
}

func TestStatusMessage(t *testing.T) {
	m := statusMessage(&PaymentStatus{})

	assert.Equal(t, "Payment Status", m.Title)
	assert.Equal(t, IndicatorBlue, m.Indicator)
	assert.Equal(t, []Field{
		{"Paymob Order ID", "N/A"},
		{"Transaction ID", "N/A"},
		{"Payment Status", "Pending"},
		{"Payment Entry", "N/A"},
	}, m.Fields)

	m = statusMessage(&PaymentStatus{OrderID: "991", TransactionID: "55", PaymentStatus: PaymentStatusPaid, PaymentEntry: "ACC-PAY-0001"})
	assert.Equal(t, []Field{
		{"Paymob Order ID", "991"},
		{"Transaction ID", "55"},
		{"Payment Status", "Paid"},
		{"Payment Entry", "ACC-PAY-0001"},
	}, m.Fields)
}
