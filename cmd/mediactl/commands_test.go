package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/service"
	"github.com/homereel/media-library/pkg/config"
)

func staticConfig(cfg *config.Config) configLoader {
	return func() (*config.Config, error) { return cfg, nil }
}

func execute(t *testing.T, load configLoader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(load)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIssueTokenValidatesWithSameSecret(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "ops-secret", Expiration: time.Hour}}

	out, err := execute(t, staticConfig(cfg), "issue-token", "user-42", "--role", "ADMIN", "--email", "ops@example.com")
	require.NoError(t, err)

	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "ops-secret"})
	claims, err := auth.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)
}

func TestIssueTokenRejectsUnknownRole(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s"}}
	_, err := execute(t, staticConfig(cfg), "issue-token", "user-42", "--role", "OWNER")
	assert.Error(t, err)
}

func TestSweepTempRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2024", "01"), 0o755))
	stale := filepath.Join(dir, "2024", "01", "abc.mp4.tmp")
	fresh := filepath.Join(dir, "2024", "01", "def.mp4.tmp")
	kept := filepath.Join(dir, "2024", "01", "ghi.mp4")
	for _, p := range []string{stale, fresh, kept} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	cfg := &config.Config{Media: config.MediaConfig{StorageDriver: config.StorageDriverLocal, StorageDir: dir, TempMaxAge: time.Hour}}
	out, err := execute(t, staticConfig(cfg), "sweep-temp")
	require.NoError(t, err)
	assert.Equal(t, "2024/01/abc.mp4.tmp\n", out)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, kept)
}

func TestSweepTempRefusesObjectStorage(t *testing.T) {
	cfg := &config.Config{Media: config.MediaConfig{StorageDriver: config.StorageDriverMinIO}}
	_, err := execute(t, staticConfig(cfg), "sweep-temp")
	assert.Error(t, err)
}

func TestMigrateRequiresCommand(t *testing.T) {
	_, err := execute(t, staticConfig(&config.Config{}), "migrate")
	assert.Error(t, err)
}
