package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
)

func TestClose_ReverseOrder(t *testing.T) {
	var order []string
	a := &App{closers: []func() error{
		func() error { order = append(order, "db"); return nil },
		func() error { order = append(order, "redis"); return errors.New("redis gone") },
	}}

	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis gone")
	assert.Equal(t, []string{"redis", "db"}, order)

	assert.NoError(t, a.Close(), "closers run once")
}

func TestNew_BadDefaultsFile(t *testing.T) {
	cfg := &config.AppConfig{Versioning: config.VersioningConfig{DefaultsFile: "/does/not/exist.yaml"}}

	a, err := New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
	assert.Nil(t, a)
}
