package usermap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/server"
	base "github.com/hackystat/hackystat-sensor-shell/pkg/sensorshell"
)

// ShellMap manages one shell per tool account for a single tool, creating
// them lazily and quitting them together.
type ShellMap struct {
	tool string
	um   *UserMap

	mu     sync.Mutex
	shells map[string]base.Shell
}

// NewShellMap loads the default UserMap and scopes it to one tool.
func NewShellMap(tool string) (*ShellMap, error) {
	return NewShellMapFromFile(tool, DefaultPath())
}

// NewShellMapFromFile is NewShellMap with an explicit UserMap.xml path.
func NewShellMapFromFile(tool, path string) (*ShellMap, error) {
	um, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &ShellMap{
		tool:   tool,
		um:     um,
		shells: make(map[string]base.Shell),
	}, nil
}

// UserMap returns the underlying map.
func (sm *ShellMap) UserMap() *UserMap { return sm.um }

// ToolAccounts lists the accounts available for this map's tool.
func (sm *ShellMap) ToolAccounts() []string {
	return sm.um.ToolAccounts(sm.tool)
}

// Shell returns the shell for the tool account, constructing it on first
// use with the mapped credentials. Account names fold case the same way
// the map does, so differently-cased lookups share one shell.
func (sm *ShellMap) Shell(toolAccount string) (base.Shell, error) {
	toolAccount = strings.ToLower(toolAccount)
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sh, ok := sm.shells[toolAccount]; ok {
		return sh, nil
	}
	cfg, err := sm.um.Config(sm.tool, toolAccount)
	if err != nil {
		return nil, err
	}
	sh, err := base.New(cfg, base.WithTool(sm.tool))
	if err != nil {
		return nil, err
	}
	sm.shells[toolAccount] = sh
	return sh, nil
}

// Validate checks every mapping for this tool: the host must answer and the
// credentials must resolve to a registered user. All failures are reported
// together.
func (sm *ShellMap) Validate(timeout time.Duration) error {
	var errs []error
	for _, account := range sm.ToolAccounts() {
		creds, err := sm.um.Credentials(sm.tool, account)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		client := server.NewClient(creds.Host, creds.User, creds.Password, timeout)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if !client.Ping(ctx) {
			errs = append(errs, fmt.Errorf("usermap: host %s not available (account %q)", creds.Host, account))
		} else if !client.IsRegistered(ctx) {
			errs = append(errs, fmt.Errorf("usermap: user %s not registered at %s (account %q)",
				creds.User, creds.Host, account))
		}
		cancel()
	}
	return errors.Join(errs...)
}

// QuitAll terminates every constructed shell; a failure in one does not
// stop the others.
func (sm *ShellMap) QuitAll() error {
	sm.mu.Lock()
	shells := make(map[string]base.Shell, len(sm.shells))
	for account, sh := range sm.shells {
		shells[account] = sh
	}
	sm.shells = make(map[string]base.Shell)
	sm.mu.Unlock()

	var errs []error
	for account, sh := range shells {
		if err := sh.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("usermap: quit %q: %w", account, err))
		}
	}
	return errors.Join(errs...)
}
