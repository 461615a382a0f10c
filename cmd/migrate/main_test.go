package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/medcare-assistant/migrations"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    command
		wantErr bool
	}{
		{args: nil, want: command{name: "up"}},
		{args: []string{"UP"}, want: command{name: "up"}},
		{args: []string{"down"}, want: command{name: "down", steps: 1}},
		{args: []string{"down", "3"}, want: command{name: "down", steps: 3}},
		{args: []string{"down", "0"}, wantErr: true},
		{args: []string{"force", "2"}, want: command{name: "force", steps: 2}},
		{args: []string{"force"}, wantErr: true},
		{args: []string{"force", "x"}, wantErr: true},
		{args: []string{"version"}, want: command{name: "version"}},
		{args: []string{"drop"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		if tt.wantErr {
			assert.Error(t, err, tt.args)
			continue
		}
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, got)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(appmigrations.FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(appmigrations.FS, "*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
