package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "pliiiz-cli v"+version+"\n", out.String())
}

func TestTokenCommandMintsAdminServiceToken(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", "cli-test-secret")
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"token", "--name", "backfill", "--ttl", "1h"})
	require.NoError(t, rootCmd.Execute())

	tokens, err := auth.NewTokens("cli-test-secret", 1)
	require.NoError(t, err)
	claims, err := tokens.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "service:backfill", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Contains(t, errOut.String(), "expires")
}

func TestServiceSubject(t *testing.T) {
	assert.Equal(t, "service:cron", serviceSubject("cron"))
	assert.Empty(t, serviceSubject(""))
}
