// TaxDesk - command-line client for the TaxDesk client portal.
package main

import (
	"os"

	"github.com/taxdesk/portal-client/internal/cli"
	"github.com/taxdesk/portal-client/internal/version"
)

func main() {
	cli.Version = version.Version
	cli.BuildTime = version.BuildTime

	os.Exit(cli.ExitCode(cli.Execute()))
}
