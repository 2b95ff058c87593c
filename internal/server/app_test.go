package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/server/config"
	"github.com/dmitrijs2005/dealflow/internal/server/mail"
	"github.com/dmitrijs2005/dealflow/internal/server/replay"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.RunMigrations = false
	c.LogLevel = "error"
	return c
}

type failingMigrations struct {
	repomanager.RepositoryManager
	calls int
}

func (f *failingMigrations) RunMigrations(context.Context, *sql.DB) error {
	f.calls++
	return errors.New("boom")
}

func TestNewApp_DefaultsToLocalMailerAndGuard(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &mail.LogMailer{}, app.mailer)
	assert.IsType(t, &replay.MemoryGuard{}, app.guard)
	assert.Nil(t, app.redis)
}

func TestNewApp_UsesConfiguredBackends(t *testing.T) {
	c := testConfig()
	c.MailAPIBaseURL = "http://mail.invalid"
	c.RedisAddr = "127.0.0.1:6379"

	app, err := NewApp(c)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &mail.APIMailer{}, app.mailer)
	assert.IsType(t, &replay.RedisGuard{}, app.guard)
	assert.NotNil(t, app.redis)
}

func TestNewApp_OpenError(t *testing.T) {
	orig := openDB
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }
	defer func() { openDB = orig }()

	_, err := NewApp(testConfig())
	assert.ErrorContains(t, err, "db init error")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestRun_MigrationFailureStopsStartup(t *testing.T) {
	c := testConfig()
	c.RunMigrations = true
	app, err := NewApp(c)
	require.NoError(t, err)
	fm := &failingMigrations{}
	app.repomanager = fm

	err = app.Run(context.Background())
	assert.ErrorContains(t, err, "migration error")
	assert.Equal(t, 1, fm.calls)
}
