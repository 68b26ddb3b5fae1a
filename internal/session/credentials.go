package session

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single configured admin account.
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials builds the admin account. A non-empty passwordHash (bcrypt)
// wins over the plain password, which is otherwise hashed here.
func NewCredentials(username, password, passwordHash string) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("admin username is empty")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, err
		}
		return &Credentials{username: username, hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		return nil, errors.New("admin password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Credentials{username: username, hash: hash}, nil
}

// Verify compares both fields without short-circuiting, so a wrong username
// costs the same bcrypt work as a wrong password.
func (c *Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}
