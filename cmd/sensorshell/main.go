// Command sensorshell is the interactive front end to the telemetry relay:
// a line-oriented shell for sensors that drive it as a subprocess, plus
// config validation and a live metrics view.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	sensorshell "github.com/hackystat/hackystat-sensor-shell"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("sensorshell %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML or .properties configuration (default: the user's sensorshell.properties)")
	tool := fs.String("tool", "interactive", "Tool name recorded in the log file name")
	cmdFile := fs.String("file", "", "Read commands from this file instead of stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repl, err := newREPL(cfg, *tool, *cmdFile)
	if err != nil {
		return err
	}
	return repl.run()
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to the configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("config for host %s looks good\n", cfg.Host)
	return nil
}

func loadConfig(path string) (*sensorshell.Config, error) {
	if path == "" {
		return sensorshell.LoadProperties(sensorshell.DefaultPropertiesPath())
	}
	b, err := sensorshell.Conf(path)
	if err != nil {
		return nil, err
	}
	return b.Config(), nil
}

func printUsage() {
	fmt.Printf(`Hackystat SensorShell

Usage:
  sensorshell <command> [flags]

Commands:
  run        Start the interactive shell (reads commands from stdin or -file)
  validate   Load and validate a configuration without starting a shell
  stats      Poll the shell's Prometheus endpoint and print live counters

Examples:
  sensorshell run -config ~/.hackystat/sensorshell/sensorshell.properties -tool Eclipse
  sensorshell validate -config ./sensorshell.yaml
  sensorshell stats -url http://localhost:9100/metrics -interval 2s
`)
}
