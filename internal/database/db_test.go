package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsDSN(t *testing.T) {
	o := Options{User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "reeltime"}
	dsn := o.DSN()
	assert.Contains(t, dsn, "app:s3cret@tcp(db:3306)/reeltime?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.NotContains(t, dsn, "multiStatements")

	o.MultiStatements = true
	assert.Contains(t, o.DSN(), "multiStatements=true")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
