package auth

import (
	"context"
	"sync"
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

// LoginTestChecker is an in-memory Checker for handler and middleware tests.
type LoginTestChecker struct {
	mutex          sync.Mutex
	LoggedSessions map[string]bool
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]bool{},
	}
}

func (c *LoginTestChecker) Add(token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.LoggedSessions[token] = true
}

func (c *LoginTestChecker) IsLogged(_ context.Context, token string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.LoggedSessions[token], nil
}
