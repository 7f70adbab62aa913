package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"grimm.is/rplinfo/internal/brand"
	"grimm.is/rplinfo/internal/config"
	"grimm.is/rplinfo/internal/i18n"
)

// RunConfig manages the configuration file.
func RunConfig(args []string) error {
	if len(args) == 0 {
		printConfigUsage()
		return errors.New("missing subcommand")
	}

	switch args[0] {
	case "generate":
		fs := flag.NewFlagSet("config generate", flag.ContinueOnError)
		out := fs.String("o", "", "Write to file instead of stdout")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		cfg := config.Default()
		if *out == "" {
			_, err := Stdout.Write(config.GenerateHCL(cfg))
			return err
		}
		if _, err := os.Stat(*out); err == nil && !*force {
			return fmt.Errorf("%s exists; use -force to overwrite", *out)
		}
		return config.SaveHCL(cfg, *out)

	case "validate":
		path := brand.GetConfigPath()
		if len(args) > 1 {
			path = args[1]
		}
		if _, err := os.Stat(path); err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
		Printer.Fprintf(Stdout, i18n.MsgConfigValid, path)
		Printer.Fprintf(Stdout, "Schema Version: %s\n", cfg.SchemaVersion)
		Printer.Fprintf(Stdout, "Backend: %s\n", cfg.Backend)
		Printer.Fprintf(Stdout, "State Dir: %s\n", cfg.StateDir)
		return nil

	case "show":
		fs := flag.NewFlagSet("config show", flag.ContinueOnError)
		path := fs.String("config", brand.GetConfigPath(), "Configuration file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		cfg, err := config.LoadFile(*path)
		if err != nil {
			return err
		}
		_, err = Stdout.Write(config.GenerateHCL(cfg))
		return err

	case "help", "-h", "--help":
		printConfigUsage()
		return nil
	}

	printConfigUsage()
	return fmt.Errorf("unknown config subcommand %q", args[0])
}

func printConfigUsage() {
	Printer.Fprintf(Stdout, `Usage: %s config <subcommand>

Subcommands:
  generate [-o file] [-force]   Write a configuration with every default
  validate [file]               Check a configuration file
  show [-config file]           Print the effective configuration
`, brand.BinaryName)
}
