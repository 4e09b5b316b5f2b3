// Package usermap resolves tool accounts to ingestion credentials for
// multi-tenant sensors: one UserMap.xml file maps each (tool, tool account)
// pair to a host, user, and password, and ShellMap hands out one shell per
// mapped account.
package usermap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	base "github.com/hackystat/hackystat-sensor-shell/pkg/sensorshell"
)

// ErrUnknownMapping indicates the requested tool or tool account is not in
// the map.
var ErrUnknownMapping = errors.New("usermap: no mapping for tool account")

// Credentials is one resolved mapping.
type Credentials struct {
	User     string
	Password string
	Host     string
}

type xmlUser struct {
	ToolAccount string `xml:"ToolAccount,attr"`
	User        string `xml:"User,attr"`
	Password    string `xml:"Password,attr"`
	Sensorbase  string `xml:"Sensorbase,attr"`
}

type xmlUsermap struct {
	Tool  string    `xml:"Tool,attr"`
	Users []xmlUser `xml:"User"`
}

type xmlUsermaps struct {
	XMLName  xml.Name     `xml:"Usermaps"`
	Usermaps []xmlUsermap `xml:"Usermap"`
}

// UserMap is the parsed mapping. Tool and tool account names compare
// case-insensitively; the credentials themselves are case-sensitive.
type UserMap struct {
	// tool (lowercased) → tool account (lowercased) → credentials
	mappings map[string]map[string]Credentials
}

// DefaultPath is <dataDir>/usermap/UserMap.xml under the default data
// directory.
func DefaultPath() string {
	return filepath.Join(config.DefaultDataDir(), "usermap", "UserMap.xml")
}

// Load parses the file at path. A missing file yields an empty map, not an
// error; sensors without multi-tenant setups simply find no mappings.
func Load(path string) (*UserMap, error) {
	m := &UserMap{mappings: make(map[string]map[string]Credentials)}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("usermap: read %s: %w", path, err)
	}

	var doc xmlUsermaps
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("usermap: parse %s: %w", path, err)
	}

	for _, um := range doc.Usermaps {
		tool := strings.ToLower(um.Tool)
		if tool == "" {
			continue
		}
		accounts := m.mappings[tool]
		if accounts == nil {
			accounts = make(map[string]Credentials)
			m.mappings[tool] = accounts
		}
		for _, u := range um.Users {
			if u.ToolAccount == "" {
				continue
			}
			accounts[strings.ToLower(u.ToolAccount)] = Credentials{
				User:     u.User,
				Password: u.Password,
				Host:     u.Sensorbase,
			}
		}
	}
	return m, nil
}

// HasTool reports whether any mapping exists for the tool.
func (m *UserMap) HasTool(tool string) bool {
	return len(m.mappings[strings.ToLower(tool)]) > 0
}

// ToolAccounts returns the account names mapped for the tool, in their
// lowercased storage form.
func (m *UserMap) ToolAccounts(tool string) []string {
	accounts := m.mappings[strings.ToLower(tool)]
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	return names
}

// Credentials resolves one (tool, tool account) pair.
func (m *UserMap) Credentials(tool, toolAccount string) (Credentials, error) {
	accounts := m.mappings[strings.ToLower(tool)]
	creds, ok := accounts[strings.ToLower(toolAccount)]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: tool %q account %q", ErrUnknownMapping, tool, toolAccount)
	}
	return creds, nil
}

// Config builds a shell configuration from one mapping.
func (m *UserMap) Config(tool, toolAccount string) (*base.Config, error) {
	creds, err := m.Credentials(tool, toolAccount)
	if err != nil {
		return nil, err
	}
	return config.New(creds.Host, creds.User, creds.Password), nil
}
