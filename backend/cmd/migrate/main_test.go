// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestMigrateSQLite(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "var", "records.db")
	cfgPath := filepath.Join(dir, "stem.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: sqlite\nstorage:\n  data_path: "+db+"\n"), 0o600))
	t.Setenv("STEM_BACKEND", "")

	out, err := execute(t, "--config", cfgPath, "--env", filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite: migrated\n", out)
	assert.FileExists(t, db)

	// A second run finds the schema already in place.
	_, err = execute(t, "--config", cfgPath, "--env", filepath.Join(dir, "none.env"))
	require.NoError(t, err)
}

func TestMigrateBackendOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEM_BACKEND", "")
	out, err := execute(t,
		"--config", filepath.Join(dir, "none.yaml"),
		"--env", filepath.Join(dir, "none.env"),
		"--backend", "memory")
	require.NoError(t, err)
	assert.Equal(t, "memory: migrated\n", out)

	_, err = execute(t,
		"--config", filepath.Join(dir, "none.yaml"),
		"--env", filepath.Join(dir, "none.env"),
		"--backend", "floppy")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestMigrateRejectsArgs(t *testing.T) {
	_, err := execute(t, "extra")
	assert.Error(t, err)
}
