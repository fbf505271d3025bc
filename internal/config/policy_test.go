package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPolicyHolderDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewPolicyHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	p := holder.Get()
	assert.Equal(t, int64(1000), p.Checkout.MinAmount)
	assert.Equal(t, int64(10000), p.Checkout.DefaultAmount)
	assert.Equal(t, 200, p.Checkout.DescriptionMaxLength)
	assert.Equal(t, int64(1000), p.Withdrawal.Step)
	assert.Equal(t, "API Key", p.APIKey.DefaultName)
	assert.Equal(t, 80, p.APIKey.NameMaxLength)
	assert.Equal(t, 100, p.Lists.AdminAudit)
}

func TestPolicyHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	body := []byte("policy:\n  checkout:\n    minAmount: 2000\n    defaultAmount: 5000\n  lists:\n    overview: 5\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	holder, err := NewPolicyHolder(Config{PolicyFile: path}, zap.NewNop())
	require.NoError(t, err)

	p := holder.Get()
	assert.Equal(t, int64(2000), p.Checkout.MinAmount)
	assert.Equal(t, int64(5000), p.Checkout.DefaultAmount)
	assert.Equal(t, 5, p.Lists.Overview)
	assert.Equal(t, int64(1000), p.Withdrawal.Step)
}

func TestPolicyHolderRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	body := []byte("policy:\n  withdrawal:\n    step: 0\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	_, err := NewPolicyHolder(Config{PolicyFile: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilPolicyHolderFallsBackToDefaults(t *testing.T) {
	var holder *PolicyHolder
	assert.Equal(t, DefaultPolicy(), holder.Get())
}
