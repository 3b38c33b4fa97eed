package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestListMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_create_properties.up.sql": {Data: []byte("--")},
		"0001_create_users.up.sql":      {Data: []byte("--")},
		"0001_create_users.down.sql":    {Data: []byte("--")},
		"embed.go":                      {Data: []byte("package migrations")},
		"nested/0003_ignored.up.sql":    {Data: []byte("--")},
	}
	assert.Equal(t,
		[]string{"0001_create_users.up.sql", "0002_create_properties.up.sql"},
		listMigrationFiles(fsys),
	)
}

func TestFilesBetween(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	assert.Equal(t, []string{"0002_b.up.sql", "0003_c.up.sql"}, filesBetween(files, 1, 3))
	assert.Empty(t, filesBetween(files, 3, 3))
	assert.Equal(t, uint64(0), parseVersion("readme.md"))
}

func TestConfigRendering(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "ile", Password: "p@ss", Name: "ilebot"}
	assert.Equal(t, "user=ile password=p@ss host=db port=5432 dbname=ilebot sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://ile:p%40ss@db:5432/ilebot?sslmode=disable", cfg.URL())
}
