package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "finance", cfg.GCP.DatasetID)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.SMTP.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "Seu relatório mensal!", cfg.Report.Subject)
	assert.Equal(t, 5, cfg.Report.TopCategories)
	assert.Equal(t, time.Duration(0), cfg.Report.StageTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yml")
	yaml := `
gcp:
  project_id: budget-prod
smtp:
  host: smtp.example.com
  from: relatorios@example.com
report:
  stage_timeout: 45s
archive:
  enabled: true
  bucket: reports-bucket
api:
  cors_origins:
    - https://app.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("BUDGET_REPORT_SMTP_HOST", "relay.internal")
	t.Setenv("BUDGET_REPORT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "budget-prod", cfg.GCP.ProjectID)
	assert.Equal(t, "relay.internal", cfg.SMTP.Host, "env overrides file")
	assert.Equal(t, "relatorios@example.com", cfg.SMTP.From)
	assert.Equal(t, 45*time.Second, cfg.Report.StageTimeout)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.API.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateDelivery())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BUDGET_REPORT_GCP_PROJECT_ID=from-dotenv\n"), 0o600))
	t.Setenv("BUDGET_REPORT_GCP_PROJECT_ID", "")
	os.Unsetenv("BUDGET_REPORT_GCP_PROJECT_ID")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GCP.ProjectID)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Archive: ArchiveConfig{Enabled: true},
		Report:  ReportConfig{StageTimeout: -time.Second},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"gcp.project_id is required",
		"gcp.dataset_id is required",
		"archive.bucket is required",
		"report.stage_timeout must not be negative",
		"report.top_categories must be positive",
	} {
		assert.ErrorContains(t, err, want)
	}

	err = cfg.ValidateDelivery()
	assert.ErrorContains(t, err, "smtp.host is required")
	assert.ErrorContains(t, err, "smtp.from is required")
}
