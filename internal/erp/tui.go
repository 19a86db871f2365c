package erp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Version info
const (
	Version = "1.0.0"
	Author  = "Mikel Calvo"
	Year    = "2026"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	vpnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	internetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	creditStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	paidBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#04B575")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	failedBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF4444")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	pendingBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#7D56F4")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	noLinkBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FFA500")).
			Foreground(lipgloss.Color("#000")).
			Padding(0, 1)

	notificationSuccess = lipgloss.NewStyle().
				Background(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	notificationError = lipgloss.NewStyle().
				Background(lipgloss.Color("#FF4444")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// View represents different screens
type View int

const (
	ViewMain View = iota
	ViewDashboard
	ViewSalesOrders
	ViewSODetail
	ViewPaymentDetail
	ViewConfirmAction
	ViewMessage
)

// menuCommand is what a main menu entry does
type menuCommand int

const (
	menuDashboard menuCommand = iota
	menuAllOrders
	menuUnpaidOrders
	menuPaidOrders
	menuTestConnection
	menuSetup
)

// MenuItem for the main menu
type MenuItem struct {
	title       string
	description string
	command     menuCommand
}

func (i MenuItem) Title() string       { return i.title }
func (i MenuItem) Description() string { return i.description }
func (i MenuItem) FilterValue() string { return i.title }

// ListItem for resource lists
type ListItem struct {
	name    string
	details string
	date    string
	amount  float64 // For totals in footer
	status  string  // Paymob status for counts
}

func (i ListItem) Title() string       { return i.name }
func (i ListItem) Description() string { return i.details }
func (i ListItem) FilterValue() string { return i.name + " " + i.details }

// Model is the main TUI model
type Model struct {
	client       *Client
	view         View
	prevView     View
	width        int
	height       int
	mainMenu     list.Model
	currentList  list.Model
	listOptions  salesOrderListOptions
	message      string
	messageType  string
	loading      bool
	selectedItem string
	// Paymob state of the open order
	order         *SalesOrder
	actions       []Action
	paymentEntry  *PaymentEntry
	user          string
	roles         RoleSet
	confirmAction Action
	confirmMsg    string
	dialog        Message
	dialogReturn  View
	// UI feedback
	spinner          spinner.Model
	breadcrumbs      []string
	notification     string
	notificationType string // "success" or "error"
	showNotification bool
	sortOrder        int // 0=date desc, 1=date asc, 2=name, 3=total
	listItems        []ListItem
	viewport         viewport.Model // Scrollable viewport for dashboard
	viewportReady    bool
	dashboardData    *PaymobReport
}

// Messages
type connectedMsg struct {
	mode  string
	url   string
	user  string
	roles RoleSet
}

type errorMsg struct {
	err error
}

type ordersLoadedMsg struct {
	items []ListItem
}

type orderLoadedMsg struct {
	order        *SalesOrder
	paymentEntry *PaymentEntry
}

type paymentEntryMsg struct {
	entry *PaymentEntry
}

type actionDoneMsg struct {
	outcome Outcome
}

type setupDoneMsg struct {
	err error
}

type clearNotificationMsg struct{}

// NewTUI creates a new TUI model
func NewTUI(client *Client) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	mainMenu := list.New(mainMenuItems(false), delegate, 0, 0)
	mainMenu.Title = client.Config.Brand
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	mainMenu.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return Model{
		client:      client,
		view:        ViewMain,
		mainMenu:    mainMenu,
		loading:     true,
		roles:       RoleSet{},
		spinner:     s,
		breadcrumbs: []string{"Main"},
	}
}

// mainMenuItems lists the menu; admin entries are added once roles are known
func mainMenuItems(admin bool) []list.Item {
	items := []list.Item{
		MenuItem{"Dashboard", "Collections by payment state", menuDashboard},
		MenuItem{"Sales Orders", "All recent sales orders", menuAllOrders},
		MenuItem{"Awaiting Payment", "Orders with a pending Paymob payment", menuUnpaidOrders},
		MenuItem{"Paid Orders", "Orders paid through Paymob", menuPaidOrders},
	}
	if admin {
		items = append(items,
			MenuItem{"Test Paymob Connection", "Check the gateway credentials on the server", menuTestConnection},
			MenuItem{"Setup Paymob Fields", "Install the Paymob custom fields on Sales Order", menuSetup},
		)
	}
	return items
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.detectConnection(),
		m.spinner.Tick,
	)
}

func (m Model) detectConnection() tea.Cmd {
	return func() tea.Msg {
		m.client.DetectConnection()

		user, roles, err := m.client.CurrentRoles(context.Background())
		if err != nil {
			return errorMsg{err}
		}

		return connectedMsg{
			mode:  m.client.Mode,
			url:   m.client.ActiveURL,
			user:  user,
			roles: roles,
		}
	}
}

func (m Model) isAdmin() bool {
	return IsAdmin(m.roles, m.client.Config.AdminRole)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.view == ViewSalesOrders && m.currentList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.currentList, cmd = m.currentList.Update(msg)
			return m, cmd
		}

		m.message = ""
		m.messageType = ""

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.view == ViewMain {
				return m, tea.Quit
			}
			if m.view == ViewConfirmAction || m.view == ViewMessage {
				return m, nil
			}
			m.view = ViewMain
			m.breadcrumbs = []string{"Main"}
			return m, nil

		case "esc":
			return m.goBack(), nil

		case "enter":
			if m.view == ViewMessage {
				return m.goBack(), nil
			}
			return m.handleEnter()

		case "y", "n":
			if m.view == ViewConfirmAction {
				return m.handleConfirmAction(msg.String() == "y")
			}

		case "r":
			if m.view == ViewSalesOrders || m.view == ViewSODetail || m.view == ViewDashboard {
				return m.refreshCurrentView()
			}

		case "o":
			if m.view == ViewSalesOrders {
				m.sortOrder = (m.sortOrder + 1) % 4
				return m.applyListItems(m.listItems), nil
			}

		case "p":
			if m.view == ViewSODetail && m.order != nil && m.order.PaymobPaymentEntry != "" {
				m.prevView = m.view
				m.view = ViewPaymentDetail
				m.loading = true
				m.breadcrumbs = append(m.breadcrumbs, m.order.PaymobPaymentEntry)
				return m, m.loadPaymentEntry(m.order.PaymobPaymentEntry)
			}
		}

		if m.view == ViewSODetail && !m.loading {
			if result, cmd, ok := m.handleActionKey(msg.String()); ok {
				return result, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		h := msg.Height - 8
		w := msg.Width - 4

		m.mainMenu.SetSize(w, h)
		if m.currentList.Items() != nil {
			m.currentList.SetSize(w, h)
		}

		headerHeight := 4 // status bar + breadcrumbs + notification + padding
		footerHeight := 4 // help + credits
		m.viewport = viewport.New(w, msg.Height-headerHeight-footerHeight)
		m.viewport.YPosition = headerHeight
		m.viewport.SetContent(m.renderDashboardContent())
		m.viewportReady = true

	case connectedMsg:
		m.loading = false
		m.client.Mode = msg.mode
		m.client.ActiveURL = msg.url
		m.user = msg.user
		m.roles = msg.roles
		m.mainMenu.SetItems(mainMenuItems(m.isAdmin()))
		return m, nil

	case errorMsg:
		m.loading = false
		m.message = msg.err.Error()
		m.messageType = "error"
		return m, nil

	case ordersLoadedMsg:
		m.loading = false
		return m.applyListItems(msg.items), nil

	case orderLoadedMsg:
		// replies for an order the user has since left are stale
		if msg.order == nil || msg.order.Name != m.selectedItem {
			return m, nil
		}
		m.loading = false
		m.order = msg.order
		m.paymentEntry = msg.paymentEntry
		m.actions = AvailableActions(msg.order, m.roles, m.client.Config.AdminRole)
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		m.dashboardData = msg.data
		if m.viewportReady {
			m.viewport.SetContent(m.renderDashboardContent())
			m.viewport.GotoTop()
		}
		return m, nil

	case paymentEntryMsg:
		m.loading = false
		m.paymentEntry = msg.entry
		return m, nil

	case actionDoneMsg:
		return m.showOutcome(msg.outcome)

	case setupDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.dialog = errorMessage("Error", msg.err)
		} else {
			m.dialog = successMessage("Success", "Paymob integration setup completed successfully!")
		}
		m.dialogReturn = m.view
		m.view = ViewMessage
		return m, nil

	case clearNotificationMsg:
		m.showNotification = false
		m.notification = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.view {
	case ViewMain:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case ViewDashboard:
		m.viewport, cmd = m.viewport.Update(msg)
	case ViewSalesOrders:
		m.currentList, cmd = m.currentList.Update(msg)
	}

	return m, cmd
}

// goBack returns to the parent of the current view
func (m Model) goBack() Model {
	switch m.view {
	case ViewSalesOrders, ViewDashboard:
		m.view = ViewMain
		m.breadcrumbs = []string{"Main"}
	case ViewSODetail:
		m.view = ViewSalesOrders
		m.selectedItem = ""
		m.order = nil
		m.actions = nil
		m.paymentEntry = nil
		if len(m.breadcrumbs) > 2 {
			m.breadcrumbs = m.breadcrumbs[:2]
		}
	case ViewPaymentDetail:
		m.view = ViewSODetail
		if len(m.breadcrumbs) > 3 {
			m.breadcrumbs = m.breadcrumbs[:3]
		}
	case ViewConfirmAction:
		m.view = m.prevView
		m.confirmAction = ""
	case ViewMessage:
		m.view = m.dialogReturn
		m.dialog = Message{}
	}
	return m
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		item, ok := m.mainMenu.SelectedItem().(MenuItem)
		if !ok {
			return m, nil
		}
		switch item.command {
		case menuDashboard:
			m.view = ViewDashboard
			m.loading = true
			m.breadcrumbs = []string{"Main", item.title}
			return m, m.loadDashboard()
		case menuAllOrders, menuUnpaidOrders, menuPaidOrders:
			m.listOptions = salesOrderListOptions{limit: 100}
			switch item.command {
			case menuUnpaidOrders:
				m.listOptions.paymentStatus = PaymentStatusPending
			case menuPaidOrders:
				m.listOptions.paymentStatus = PaymentStatusPaid
			}
			m.view = ViewSalesOrders
			m.loading = true
			m.breadcrumbs = []string{"Main", item.title}
			return m, m.loadSalesOrders()
		case menuTestConnection:
			if !m.isAdmin() {
				return m, nil
			}
			m.loading = true
			return m, m.runAction(ActionTestConnection, nil)
		case menuSetup:
			if !m.isAdmin() {
				return m, nil
			}
			m.prevView = m.view
			m.confirmAction = ""
			m.confirmMsg = "Install the Paymob custom fields on Sales Order?"
			m.view = ViewConfirmAction
			return m, nil
		}

	case ViewSalesOrders:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			m.selectedItem = item.name
			m.view = ViewSODetail
			m.loading = true
			m.order = nil
			m.actions = nil
			m.breadcrumbs = append(m.breadcrumbs[:2], item.name)
			return m, m.loadSODetail(item.name)
		}
	}

	return m, nil
}

// handleActionKey starts the action bound to key, asking for confirmation first when needed
func (m Model) handleActionKey(key string) (tea.Model, tea.Cmd, bool) {
	a, ok := ActionByKey(m.actions, key)
	if !ok {
		return m, nil, false
	}

	if a.NeedsConfirm() {
		m.prevView = m.view
		m.confirmAction = a
		m.confirmMsg = a.ConfirmPrompt()
		m.view = ViewConfirmAction
		return m, nil, true
	}

	m.loading = true
	return m, m.runAction(a, m.order), true
}

// handleConfirmAction handles the confirm action response
func (m Model) handleConfirmAction(confirmed bool) (tea.Model, tea.Cmd) {
	a := m.confirmAction
	m.view = m.prevView
	m.confirmAction = ""
	if !confirmed {
		return m, nil
	}

	m.loading = true
	if a == "" {
		return m, m.runSetup()
	}
	return m, m.runAction(a, m.order)
}

// showOutcome opens the message dialog for a finished action and reloads
// the order when the action changed it.
func (m Model) showOutcome(out Outcome) (tea.Model, tea.Cmd) {
	m.loading = false
	m.dialog = out.Message
	m.dialogReturn = m.view
	m.view = ViewMessage

	cmds := []tea.Cmd{}
	if out.Err == nil && out.Message.Indicator == IndicatorGreen {
		m.notification = out.Message.Body
		m.notificationType = "success"
		m.showNotification = true
		cmds = append(cmds, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearNotificationMsg{}
		}))
	}
	if out.Reload && m.order != nil {
		m.loading = true
		cmds = append(cmds, m.loadSODetail(m.order.Name))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) refreshCurrentView() (tea.Model, tea.Cmd) {
	m.loading = true
	switch m.view {
	case ViewDashboard:
		return m, m.loadDashboard()
	case ViewSalesOrders:
		return m, m.loadSalesOrders()
	case ViewSODetail:
		return m, m.loadSODetail(m.selectedItem)
	}
	m.loading = false
	return m, nil
}

// applyListItems sorts items and rebuilds the list widget
func (m Model) applyListItems(items []ListItem) Model {
	sorted := make([]ListItem, len(items))
	copy(sorted, items)
	switch m.sortOrder {
	case 1:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].date < sorted[j].date })
	case 2:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	case 3:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].amount > sorted[j].amount })
	default:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].date > sorted[j].date })
	}
	m.listItems = sorted

	listItems := make([]list.Item, len(sorted))
	for i, item := range sorted {
		listItems[i] = item
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle

	m.currentList = list.New(listItems, delegate, m.width-4, m.height-8)
	m.currentList.SetShowStatusBar(true)
	m.currentList.SetFilteringEnabled(true)
	m.setListTitle()
	return m
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch m.view {
	case ViewMain:
		if m.loading {
			content = fmt.Sprintf("\n  %s Connecting...", m.spinner.View())
		} else {
			content = m.mainMenu.View()
		}
	case ViewDashboard:
		content = m.renderDashboard()
	case ViewSalesOrders:
		if m.loading {
			content = fmt.Sprintf("\n  %s Loading...", m.spinner.View())
		} else {
			content = m.currentList.View() + m.renderListFooter()
		}
	case ViewSODetail:
		content = m.renderSODetail()
	case ViewPaymentDetail:
		content = m.renderPaymentDetail()
	case ViewConfirmAction:
		content = m.renderConfirmAction()
	case ViewMessage:
		content = m.renderMessage()
	}

	var b strings.Builder

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	b.WriteString(m.renderBreadcrumbs())
	b.WriteString("\n")

	// Notification (success feedback that auto-dismisses)
	if m.showNotification {
		if m.notificationType == "success" {
			b.WriteString(notificationSuccess.Render("✓ " + m.notification))
		} else {
			b.WriteString(notificationError.Render("✗ " + m.notification))
		}
		b.WriteString("\n")
	}

	b.WriteString(content)

	// Error message (persists until user takes action)
	if m.message != "" {
		b.WriteString("\n\n")
		if m.messageType == "error" {
			b.WriteString(errorStyle.Render("Error: " + m.message))
		} else if m.messageType == "success" {
			b.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	b.WriteString("\n")
	b.WriteString(m.renderCredits())

	return b.String()
}

func (m Model) renderStatusBar() string {
	var mode string
	if m.client.Mode == "vpn" {
		mode = vpnStyle.Render("● VPN")
	} else {
		mode = internetStyle.Render("● Internet")
	}

	user := m.user
	if user == "" {
		user = "…"
	}
	status := fmt.Sprintf(" %s | %s | %s | %s ", m.client.Config.Brand, mode, m.client.ActiveURL, user)
	return statusBarStyle.Render(status)
}

func (m Model) renderBreadcrumbs() string {
	if len(m.breadcrumbs) == 0 {
		return ""
	}
	return breadcrumbStyle.Render("  " + strings.Join(m.breadcrumbs, " > "))
}

func (m Model) renderHelp() string {
	var help string
	switch m.view {
	case ViewMain:
		help = "↑/↓: navigate • enter: select • q: quit"
	case ViewDashboard:
		help = "↑/↓: scroll • r: refresh • esc: back"
	case ViewSalesOrders:
		help = "↑/↓: navigate • enter: detail • o: sort • r: refresh • /: search • esc: back"
	case ViewSODetail:
		parts := []string{"esc: back", "r: reload"}
		for _, a := range m.actions {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Key(), strings.ToLower(a.Label())))
		}
		if m.order != nil && m.order.PaymobPaymentEntry != "" {
			parts = append(parts, "p: payment entry")
		}
		help = strings.Join(parts, " • ")
	case ViewPaymentDetail:
		help = "esc: back"
	case ViewConfirmAction:
		help = "y: confirm • n: cancel"
	case ViewMessage:
		help = "enter/esc: close"
	}
	return helpStyle.Render(help)
}

func (m Model) renderCredits() string {
	return creditStyle.Render(fmt.Sprintf("Created by %s in %s • v%s", Author, Year, Version))
}

// RunTUI starts the TUI
func RunTUI(client *Client) error {
	client.Logger.Info("starting TUI", zap.String("url", client.Config.ERPURL))
	p := tea.NewProgram(NewTUI(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
