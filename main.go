package main

import (
	"errors"
	"flag"
	"os"

	"grimm.is/rplinfo/cmd"
	"grimm.is/rplinfo/internal/brand"
	"grimm.is/rplinfo/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var run func([]string) error
	switch os.Args[1] {
	case "show":
		run = cmd.RunShow
	case "check":
		run = cmd.RunCheck
	case "change":
		run = cmd.RunChange
	case "reset":
		run = cmd.RunReset
	case "config":
		run = cmd.RunConfig
	case "import":
		run = cmd.RunImport
	case "export":
		run = cmd.RunExport
	case "watch":
		run = cmd.RunWatch

	case "version":
		printer.Printf("%s %s (%s)\n", brand.Name, brand.Version, brand.GitCommit)
		return

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		printer.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		printer.Fprintf(os.Stderr, "%s %s failed: %v\n", brand.BinaryName, os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  show      Print the effective values of a channel
            Options: -channel <name>, -all (-a), -json, -yaml
  check     Compare stored records with their canonical form
            Options: -channel <name>, -all (-a), -fix, -q
  change    Apply CHANGE MASTER options and save master info
            Options: -host, -port, -ssl-ca, -use-gtid, ... ("default" resets)
  reset     Put defaultable fields back to DEFAULT (RESET SLAVE)
            Options: -confirm (-y), -channel <name>, -all, -drop
  config    Manage the configuration file
            Subcommands: generate, validate, show
  import    Copy channels into the configured backend
            Options: -from <file|sqlite> -source <path>, or -json <file>
  export    Copy channels out of the configured backend
            Options: -to <file|sqlite> -dest <path>, or -json <file>
  watch     Follow the configuration and report moved defaults
  version   Print version information

Common options:
  -config (-c) <file>   Configuration file (default %s)
  -state-dir <dir>      Override state directory
  -backend <kind>       Override backend (file or sqlite)
  -metrics-file <file>  Write Prometheus metrics on exit
  -v                    Verbose logging

Examples:
  %s show -all
  %s change -channel east -host db1 -port 3306 -heartbeat-period 1.5
  %s change -use-gtid default
  %s check -fix
  %s export -to sqlite
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.GetConfigPath(),
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
