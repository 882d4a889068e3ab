package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	target  uint
	version uint
	dirty   bool
	verErr  error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Migrate(version uint) error {
	f.target = version
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.verErr }

func TestRun(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	assert.NoError(t, run(m, "up", nil))

	m.upErr = errors.New("syntax error")
	assert.ErrorContains(t, run(m, "up", nil), "syntax error")

	assert.NoError(t, run(m, "down", nil))
	assert.Equal(t, []int{-1}, m.steps)

	assert.NoError(t, run(m, "goto", []string{"2"}))
	assert.Equal(t, uint(2), m.target)
	assert.Error(t, run(m, "goto", nil))
	assert.Error(t, run(m, "goto", []string{"x"}))

	m.verErr = migrate.ErrNilVersion
	assert.NoError(t, run(m, "status", nil))

	assert.EqualError(t, run(m, "sideways", nil), `unknown command "sideways"`)
}
