package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikelcalvo/erpnext-paymob/internal/erp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "tui"
	if len(args) > 0 {
		cmd = args[0]
	}

	// Help doesn't need config
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return 0
	}

	// Version
	if cmd == "version" || cmd == "-v" || cmd == "--version" {
		fmt.Printf("Paymob CLI v%s\n", erp.Version)
		fmt.Printf("Created by %s in %s\n", erp.Author, erp.Year)
		return 0
	}

	config, err := loadConfig(cmd == "tui")
	if err != nil {
		fmt.Printf("%sError: %s%s\n", erp.Red, err, erp.Reset)
		return 1
	}
	if config == nil {
		return 0
	}

	logger, err := erp.LoggerFor(config, cmd == "tui")
	if err != nil {
		fmt.Printf("%sError: cannot open log: %s%s\n", erp.Red, err, erp.Reset)
		return 1
	}
	defer logger.Sync()

	client := erp.NewClient(config, logger)

	if cmd == "tui" {
		if err := erp.RunTUI(client); err != nil {
			fmt.Printf("%sError: %s%s\n", erp.Red, err, erp.Reset)
			return 1
		}
		return 0
	}

	// Detect connection mode (except for ping/config which do it themselves)
	if cmd != "ping" && cmd != "config" {
		client.DetectConnection()
	}

	var cmdErr error
	switch cmd {
	case "ping":
		cmdErr = client.CmdPing()
	case "config":
		cmdErr = client.CmdConfig()
	case "so":
		cmdErr = client.CmdSO(args[1:])
	case "payment":
		cmdErr = client.CmdPayment(args[1:])
	case "report":
		cmdErr = client.CmdReport(args[1:])
	case "paymob":
		cmdErr = client.CmdPaymob(args[1:])
	default:
		fmt.Printf("%sUnknown command: %s%s\n", erp.Red, cmd, erp.Reset)
		printUsage()
		return 1
	}

	if cmdErr != nil {
		var reported *erp.ReportedError
		if !errors.As(cmdErr, &reported) {
			fmt.Printf("%sError: %s%s\n", erp.Red, cmdErr, erp.Reset)
		}
		return 1
	}
	return 0
}

// loadConfig reads .erp-config. When it is missing and the TUI was asked
// for, the setup wizard runs; a nil config means the user cancelled it.
func loadConfig(tui bool) (*erp.Config, error) {
	config, err := erp.LoadConfig()
	if err == nil || !errors.Is(err, erp.ErrConfigNotFound) || !tui {
		return config, err
	}

	saved, err := erp.RunSetupTUI()
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, nil
	}
	return erp.LoadConfig()
}

func printUsage() {
	fmt.Printf(`%sPaymob CLI%s - Created by %s in %s

Usage: erp-paymob <command> [subcommand] [args...]

Without a command the interactive TUI starts. If no .erp-config is found,
a setup wizard creates one.

%sCommands:%s

  %sping%s                              Test connection and authentication
  %sconfig%s                            Show current configuration
  %sversion%s                           Show version information

%sSales Orders:%s
  %sso list [--customer=X] [--status=X] [--paymob=Pending|Paid|Failed] [--limit=N]%s
                                      List sales orders with their Paymob status
  %sso get <name>%s                     Show an order, its Paymob fields and actions

%sPaymob:%s
  %spaymob actions <so>%s               List the payment actions offered for an order
  %spaymob link <so> [--yes]%s          Create a payment link and email it to the customer
  %spaymob view <so>%s                  Show the payment link
  %spaymob copy <so>%s                  Copy the payment link to the clipboard
  %spaymob email <so> [--yes]%s         Send the payment email again
  %spaymob status <so> [--watch=30s]%s  Check the payment status, optionally polling
  %spaymob test%s                       Test the gateway connection (admin role)
  %spaymob setup [--yes]%s              Install the Paymob fields on Sales Order (admin role)

%sPayments:%s
  %spayment get <name>%s                Show the Payment Entry created for a payment

%sReports:%s
  %sreport%s                            Collections of submitted orders by payment state

%sEnvironment:%s
  ERP_URL, ERP_API_KEY, ERP_API_SECRET, ERP_VPN, NGINX_COOKIE, NGINX_COOKIE_NAME,
  ERP_BRAND, ERP_PAYMOB_MODULE, ERP_ADMIN_ROLE, ERP_LOG_LEVEL, ERP_LOG_FORMAT, ERP_LOG_FILE
  override the values in .erp-config.
`,
		erp.Cyan, erp.Reset, erp.Author, erp.Year,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
	)
}
