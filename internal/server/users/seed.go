package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Account is one entry of a users file. Exactly one of Password and
// PasswordHash is expected; a plain password is hashed on load.
type Account struct {
	ID           string   `json:"id" yaml:"id"`
	UserName     string   `json:"username" yaml:"username"`
	Password     string   `json:"password" yaml:"password"`
	PasswordHash string   `json:"password_hash" yaml:"password_hash"`
	Email        string   `json:"email" yaml:"email"`
	Roles        []string `json:"roles" yaml:"roles"`
}

// DefaultAccounts is used when no users file is configured.
var DefaultAccounts = []Account{
	{ID: "admin", UserName: "admin", Password: "admin", Roles: []string{"admin"}},
}

// ReadAccounts decodes a users file: YAML for .yaml/.yml, JSON otherwise.
func ReadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var accounts []Account
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &accounts)
	default:
		err = json.Unmarshal(data, &accounts)
	}
	if err != nil {
		return nil, fmt.Errorf("decode users file %s: %w", path, err)
	}
	return accounts, nil
}

// Seed hashes and stores accounts. Accounts without an id get a
// time-ordered uuid.
func Seed(ctx context.Context, repo Repository, accounts []Account, cost int) error {
	for _, a := range accounts {
		if a.UserName == "" {
			return fmt.Errorf("account without username")
		}

		hash := []byte(a.PasswordHash)
		if a.Password != "" {
			var err error
			if hash, err = bcrypt.GenerateFromPassword([]byte(a.Password), cost); err != nil {
				return fmt.Errorf("hash password of %s: %w", a.UserName, err)
			}
		}
		if len(hash) == 0 {
			return fmt.Errorf("account %s has no password", a.UserName)
		}

		id := a.ID
		if id == "" {
			u, err := uuid.NewV7()
			if err != nil {
				return err
			}
			id = u.String()
		}

		if _, err := repo.Create(ctx, &User{
			ID:           id,
			UserName:     a.UserName,
			Email:        a.Email,
			Roles:        a.Roles,
			PasswordHash: hash,
		}); err != nil {
			return err
		}
	}
	return nil
}
