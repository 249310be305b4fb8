package db

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yelpcamp/apiserver/config"
)

func TestPostgresURL(t *testing.T) {
	raw := PostgresURL(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "camp",
		Password: "p@ss word",
		DBName:   "yelpcamp_db",
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "camp", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "/yelpcamp_db", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestPostgresURLWithSSL(t *testing.T) {
	raw := PostgresURL(config.DatabaseConfig{Host: "h", Port: 5432, DBName: "d", UseSSL: true})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
