package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const appConfigDir = "mailsweep"

// ErrAccountNotFound is returned when an email has no configured account.
var ErrAccountNotFound = errors.New("account not found")

// Account is a single configured Gmail account.
type Account struct {
	Name    string    `toml:"name,omitempty"`
	Email   string    `toml:"email"`
	AddedAt time.Time `toml:"added_at"`
}

// Config is the mailsweep configuration.
type Config struct {
	Accounts []Account `toml:"accounts"`
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appConfigDir, "config.toml"))
}

// Load reads the config file from disk. A missing file yields an empty
// config.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Find returns the account matching email, case-insensitively.
func (c *Config) Find(email string) (Account, error) {
	for _, account := range c.Accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// Add appends an account; adding an existing email is an error.
func (c *Config) Add(account Account) error {
	if _, err := c.Find(account.Email); err == nil {
		return fmt.Errorf("account %s already exists", account.Email)
	}
	c.Accounts = append(c.Accounts, account)
	return nil
}

// Remove deletes the account matching email.
func (c *Config) Remove(email string) error {
	for i, account := range c.Accounts {
		if strings.EqualFold(account.Email, email) {
			c.Accounts = append(c.Accounts[:i], c.Accounts[i+1:]...)
			return nil
		}
	}
	return ErrAccountNotFound
}
