package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "domainpark/internal/jwt_token"
	id "domainpark/pkg/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempDatabase(t *testing.T) {
	t.Setenv("DOMAINPARK_DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "ctl.db"))
}

func TestMigrate(t *testing.T) {
	useTempDatabase(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrations applied\n", out)

	// idempotent
	_, err = execute(t, "migrate")
	require.NoError(t, err)
}

func TestSweepPrintsReport(t *testing.T) {
	useTempDatabase(t)

	out, err := execute(t, "sweep")
	require.NoError(t, err)

	var report struct {
		Scanned int      `json:"scanned"`
		Updated int      `json:"updated"`
		Domains []string `json:"domains"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Scanned)
	assert.Empty(t, report.Domains)
}

func TestToken(t *testing.T) {
	t.Setenv("DOMAINPARK_SERVER_JWT_SIGNING_KEY", "cli-signing-key")
	user := id.NewUserID()

	out, err := execute(t, "token", user.String(), "--ttl", "5m")
	require.NoError(t, err)

	svc, err := jwttoken.NewJWTService("cli-signing-key", "domainpark", "domainpark-api")
	require.NoError(t, err)
	got, err := svc.ExtractUserID(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestArgumentValidation(t *testing.T) {
	_, err := execute(t, "quote")
	assert.Error(t, err)

	_, err = execute(t, "token", "not-a-uuid")
	assert.Error(t, err)

	t.Setenv("DOMAINPARK_LIFECYCLE_PRICE_CEILING", "-1")
	_, err = execute(t, "sweep")
	assert.Error(t, err)
}
