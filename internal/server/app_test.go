package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Addr = "127.0.0.1:0"
	return c
}

func TestNewApp_DefaultAccounts(t *testing.T) {
	app, err := NewApp(testConfig(), logging.Nop())
	require.NoError(t, err)

	_, user, err := app.userService.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.UserName)
}

func TestNewApp_UsersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- username: bob\n  password: secret\n  roles: [viewer]\n"), 0o600))

	c := testConfig()
	c.UsersFile = path
	app, err := NewApp(c, logging.Nop())
	require.NoError(t, err)

	_, _, err = app.userService.Login(context.Background(), "bob", "secret")
	require.NoError(t, err)
	_, _, err = app.userService.Login(context.Background(), "admin", "admin")
	assert.Error(t, err)
}

func TestNewApp_MissingUsersFile(t *testing.T) {
	c := testConfig()
	c.UsersFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := NewApp(c, logging.Nop())
	assert.ErrorContains(t, err, "users file")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	c := testConfig()
	c.Addr = "256.0.0.1:bad"
	app, err := NewApp(c, logging.Nop())
	require.NoError(t, err)

	select {
	case err := <-runAsync(app):
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not fail")
	}
}

func runAsync(app *App) <-chan error {
	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	return done
}
