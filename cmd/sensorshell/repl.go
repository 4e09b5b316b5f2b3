package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	sensorshell "github.com/hackystat/hackystat-sensor-shell"
)

// delimiter separates a command from its arguments and the arguments from
// each other.
const delimiter = "#"

const prompt = ">> "

// repl reads one command per line, from stdin (interactively, with a
// prompt) or from a command file.
type repl struct {
	shell       sensorshell.Shell
	cfg         *sensorshell.Config
	input       io.Reader
	interactive bool
}

func newREPL(cfg *sensorshell.Config, tool, cmdFile string) (*repl, error) {
	sh, err := sensorshell.New(cfg, sensorshell.WithTool(tool))
	if err != nil {
		return nil, err
	}

	var input io.Reader = os.Stdin
	interactive := true
	if cmdFile != "" {
		f, err := os.Open(cmdFile)
		if err != nil {
			_ = sh.Quit()
			return nil, fmt.Errorf("open command file: %w", err)
		}
		input = f
		interactive = false
	}

	return &repl{shell: sh, cfg: cfg, input: input, interactive: interactive}, nil
}

func (r *repl) run() error {
	r.printBanner()

	scanner := bufio.NewScanner(r.input)
	for {
		if r.interactive {
			fmt.Print(prompt)
		}
		if !scanner.Scan() {
			break
		}
		if r.process(strings.TrimSpace(scanner.Text())) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		r.println("input error: " + err.Error())
	}
	// EOF behaves like quit so piped sensors never leave data buffered.
	return r.shell.Quit()
}

// process executes one command line and reports whether the shell quit.
func (r *repl) process(line string) bool {
	switch line {
	case "":
		return false
	case "quit":
		if err := r.shell.Quit(); err != nil {
			r.println("quit: " + err.Error())
		}
		r.println("Quitting.")
		return true
	case "help":
		r.printHelp()
		return false
	case "send":
		n, err := r.shell.Send()
		if err != nil {
			r.println("send: " + err.Error())
			return false
		}
		r.println(fmt.Sprintf("%d sensor data instances sent.", n))
		return false
	case "ping":
		if r.shell.Ping() {
			r.println(fmt.Sprintf("Ping of %s for user %s succeeded.", r.cfg.Host, r.cfg.User))
		} else {
			r.println(fmt.Sprintf("Ping of %s for user %s did not succeed.", r.cfg.Host, r.cfg.User))
		}
		return false
	}

	parts := strings.Split(line, delimiter)
	switch parts[0] {
	case "add":
		keyVals, err := parseKeyVals(parts[1:])
		if err != nil {
			r.println("add: " + err.Error())
			return false
		}
		if err := r.shell.AddKeyValues(keyVals); err != nil {
			r.println("add: " + err.Error())
		}
	case "statechange":
		if len(parts) < 2 {
			r.println("statechange: checksum argument required")
			return false
		}
		checksum, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			r.println("statechange: cannot parse checksum: " + parts[1])
			return false
		}
		keyVals, err := parseKeyVals(parts[2:])
		if err != nil {
			r.println("statechange: " + err.Error())
			return false
		}
		if err := r.shell.StateChange(checksum, keyVals); err != nil {
			r.println("statechange: " + err.Error())
		}
	case "autosend":
		if len(parts) < 2 {
			r.println("autosend: minutes argument required")
			return false
		}
		minutes, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || minutes < 0 {
			r.println("autosend: invalid argument: " + parts[1])
			return false
		}
		if s, ok := r.shell.(interface{ SetAutoSendInterval(float64) }); ok {
			s.SetAutoSendInterval(minutes)
			if minutes == 0 {
				r.println("AutoSend disabled.")
			} else {
				r.println(fmt.Sprintf("AutoSend set to %v minutes.", minutes))
			}
		}
	default:
		r.println("Invalid command entered and ignored. Type 'help' for help.")
	}
	return false
}

func parseKeyVals(args []string) (map[string]string, error) {
	keyVals := make(map[string]string, len(args))
	for _, arg := range args {
		eq := strings.Index(arg, "=")
		if eq < 1 {
			return nil, fmt.Errorf("cannot parse argument %q as key=value", arg)
		}
		keyVals[arg[:eq]] = arg[eq+1:]
	}
	return keyVals, nil
}

func (r *repl) printBanner() {
	r.println("Hackystat SensorShell")
	r.println("Started at: " + r.shell.StartTime().Format(time.RFC3339))
	r.println("Host: " + r.cfg.Host)
	if r.shell.Ping() {
		r.println(fmt.Sprintf("User %s is authorized to login at this host.", r.cfg.User))
	} else {
		r.println(fmt.Sprintf("Host not available or user %s not authorized.", r.cfg.User))
	}
	r.println("Type 'help' for a list of commands.")
}

func (r *repl) printHelp() {
	r.println(`SensorShell Command Summary
  add#<key>=<value>[#<key>=<value>]...
    Queues a new sensor data instance for transmission. Owner, Timestamp,
    and Runtime default to the configured user and the current time.
    Example: add#Tool=Eclipse#SensorDataType=DevEvent#DevEvent-Type=Compile
  send
    Sends queued data now. If the server does not respond, data is stored
    offline and recovered on a later run.
  ping
    Checks that the host is reachable and the credentials are valid.
  statechange#<checksum>[#<key>=<value>]...
    Queues an add only when the resource or its checksum changed since the
    previous statechange; otherwise it is suppressed.
  autosend#<minutes>
    Changes the automatic send interval. 0 disables automatic sending.
  quit
    Sends any remaining data and exits.`)
}

func (r *repl) println(line string) {
	if r.interactive {
		fmt.Println(time.Now().Format("01/02 15:04:05") + " " + line)
	}
}
