package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Connection is a configured data-source connection owned by a plugin.
type Connection struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Plugin   string `json:"-"`
}

// ScopeConfig is the per-scope transformation configuration reference.
type ScopeConfig struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Scope is a unit of data (a repository, a board) collected under a connection.
type Scope struct {
	ID          string       `json:"-"`
	Name        string       `json:"name"`
	FullName    string       `json:"fullName,omitempty"`
	ScopeConfig *ScopeConfig `json:"-"`
}

// DisplayName prefers the scope's full name.
func (s Scope) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Name
}

// ConnectionKey builds the "plugin-id" identifier for a plugin connection.
func ConnectionKey(plugin string, connectionID int) string {
	return fmt.Sprintf("%s-%d", plugin, connectionID)
}

// ParseConnectionKey splits a "plugin-id" identifier. Plugin names may not
// contain '-', the id is the part after the last one.
func ParseConnectionKey(key string) (string, int, error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("invalid connection key %q", key)
	}
	id, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid connection id in %q: %w", key, err)
	}
	return key[:idx], id, nil
}
