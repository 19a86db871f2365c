package erp

import "fmt"

// Paymob payment status values stored on the Sales Order
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Action is a payment operation offered on a Sales Order
type Action string

const (
	ActionCreateLink     Action = "create_link"
	ActionViewLink       Action = "view_link"
	ActionCopyLink       Action = "copy_link"
	ActionSendEmail      Action = "send_email"
	ActionCheckStatus    Action = "check_status"
	ActionTestConnection Action = "test_connection"
)

type actionSpec struct {
	label   string
	key     string // TUI shortcut
	command string // CLI subcommand under "paymob"
	confirm string // empty means no confirmation
	success string // fixed success text; empty means use the server message
	reload  bool   // re-fetch the order after success
}

var actionSpecs = map[Action]actionSpec{
	ActionCreateLink: {
		label:   "Create Payment Link",
		key:     "c",
		command: "link",
		confirm: "Are you sure you want to create a payment link for this Sales Order?",
		success: "Payment link created and sent to customer successfully!",
		reload:  true,
	},
	ActionViewLink: {
		label:   "View Payment Link",
		key:     "v",
		command: "view",
	},
	ActionCopyLink: {
		label:   "Copy Payment Link",
		key:     "y",
		command: "copy",
		success: "Payment link copied to clipboard",
	},
	ActionSendEmail: {
		label:   "Send Payment Email",
		key:     "e",
		command: "email",
		confirm: "Are you sure you want to send the payment email to the customer?",
		success: "Payment email sent to customer successfully!",
	},
	ActionCheckStatus: {
		label:   "Check Payment Status",
		key:     "k",
		command: "status",
		reload:  true,
	},
	ActionTestConnection: {
		label:   "Test Paymob Connection",
		key:     "t",
		command: "test",
	},
}

// Label is the button text of the action
func (a Action) Label() string { return actionSpecs[a].label }

// Key is the TUI shortcut of the action
func (a Action) Key() string { return actionSpecs[a].key }

// Command is the CLI subcommand of the action
func (a Action) Command() string { return actionSpecs[a].command }

// ConfirmPrompt returns the confirmation question, or "" when the action runs directly
func (a Action) ConfirmPrompt() string { return actionSpecs[a].confirm }

// NeedsConfirm reports whether the user must confirm before the action runs
func (a Action) NeedsConfirm() bool { return actionSpecs[a].confirm != "" }

// ReloadsOrder reports whether the order is re-fetched after a successful run
func (a Action) ReloadsOrder() bool { return actionSpecs[a].reload }

// AvailableActions returns, in menu order, the payment actions offered for
// so given the user's roles. Orders that are not submitted get none.
func AvailableActions(so *SalesOrder, roles RoleSet, adminRole string) []Action {
	if so == nil || !so.IsSubmitted() {
		return nil
	}

	var actions []Action
	if !so.HasPaymentLink() {
		actions = append(actions, ActionCreateLink)
	}
	if so.HasPaymentLink() {
		actions = append(actions, ActionViewLink, ActionCopyLink)
	}
	if so.HasPaymentLink() && !so.IsPaid() {
		actions = append(actions, ActionSendEmail)
	}
	actions = append(actions, ActionCheckStatus)
	if IsAdmin(roles, adminRole) {
		actions = append(actions, ActionTestConnection)
	}
	return actions
}

// IsAdmin reports whether roles grant the administrative actions
func IsAdmin(roles RoleSet, adminRole string) bool {
	if adminRole == "" {
		adminRole = DefaultAdminRole
	}
	return roles.Has(adminRole)
}

// HasAction reports whether a is in actions
func HasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// ActionByKey finds the action bound to a TUI key among actions
func ActionByKey(actions []Action, key string) (Action, bool) {
	for _, a := range actions {
		if a.Key() == key {
			return a, true
		}
	}
	return "", false
}

// unavailableReason explains why a is not offered for so
func unavailableReason(a Action, so *SalesOrder) error {
	if so != nil && !so.IsSubmitted() {
		return fmt.Errorf("%s: %w (docstatus %d)", a.Label(), ErrNotSubmitted, so.DocStatus)
	}
	switch a {
	case ActionCreateLink:
		return fmt.Errorf("%s: %w: a payment link already exists", a.Label(), ErrActionUnavailable)
	case ActionViewLink, ActionCopyLink:
		return fmt.Errorf("%s: %w", a.Label(), ErrNoPaymentLink)
	case ActionSendEmail:
		if so != nil && !so.HasPaymentLink() {
			return fmt.Errorf("%s: %w", a.Label(), ErrNoPaymentLink)
		}
		return fmt.Errorf("%s: %w: order is already paid", a.Label(), ErrActionUnavailable)
	case ActionTestConnection:
		return fmt.Errorf("%s: %w: requires an administrator role", a.Label(), ErrActionUnavailable)
	}
	return fmt.Errorf("%s: %w", a.Label(), ErrActionUnavailable)
}

// Indicator is the colour of a user-facing message
type Indicator string

const (
	IndicatorGreen Indicator = "green"
	IndicatorRed   Indicator = "red"
	IndicatorBlue  Indicator = "blue"
)

// Field is a labelled value inside a Message
type Field struct {
	Label string
	Value string
}

// Message is the single dialog shown after an action
type Message struct {
	Title     string
	Body      string
	Fields    []Field
	Link      string
	Indicator Indicator
}

// Outcome is the result of running an action
type Outcome struct {
	Action  Action
	Message Message
	Reload  bool
	Err     error
}

func successMessage(title, body string) Message {
	return Message{Title: title, Body: body, Indicator: IndicatorGreen}
}

func errorMessage(title string, err error) Message {
	body := "Unknown error"
	if err != nil {
		body = err.Error()
	}
	return Message{Title: title, Body: body, Indicator: IndicatorRed}
}

// statusMessage renders a payment status lookup the way the form dialog does
func statusMessage(st *PaymentStatus) Message {
	status := st.PaymentStatus
	if status == "" {
		status = PaymentStatusPending
	}
	return Message{
		Title: "Payment Status",
		Fields: []Field{
			{"Paymob Order ID", orNA(string(st.OrderID))},
			{"Transaction ID", orNA(string(st.TransactionID))},
			{"Payment Status", status},
			{"Payment Entry", orNA(st.PaymentEntry)},
		},
		Indicator: IndicatorBlue,
	}
}
