package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/validate"
)

func TestDefaultConfigValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "empty output dir", cfg: Config{DashboardEnabled: true, PortalDailyLimit: 10}},
		{name: "nothing enabled", cfg: Config{OutputDir: "/tmp", PortalDailyLimit: 10}},
		{name: "zero daily limit", cfg: Config{OutputDir: "/tmp", RulesEnabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestBuildOverviewDashboard(t *testing.T) {
	t.Parallel()

	dash, err := dashboards.BuildOverview(2000).Build()
	require.NoError(t, err)

	require.NotNil(t, dash.Uid)
	assert.Equal(t, "einvoice-overview", *dash.Uid)
	require.NotNil(t, dash.Title)
	assert.Equal(t, "E-Invoice Tracker", *dash.Title)

	require.NotNil(t, dash.Templating)
	require.Len(t, dash.Templating.List, 1)
	assert.Equal(t, "datasource", dash.Templating.List[0].Name)

	assert.Len(t, dash.Panels, 5)
	totalPanels := 0
	for _, p := range dash.Panels {
		if p.RowPanel != nil {
			totalPanels += len(p.RowPanel.Panels)
		}
	}
	assert.Equal(t, 18, totalPanels)

	result := validate.Dashboard(dash, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings, "unexpected warnings: %v", result.Warnings)
}

func TestRecordingRules(t *testing.T) {
	t.Parallel()

	cr := rules.RecordingRules()
	assert.Equal(t, "monitoring.coreos.com/v1", cr.APIVersion)
	assert.Equal(t, "PrometheusRule", cr.Kind)
	assert.Equal(t, "einvoice-recording-rules", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "einvoice-recording", group.Name)

	expected := []string{
		"einvoice:http_requests:rate5m",
		"einvoice:http_errors:rate5m",
		"einvoice:portal_calls:rate5m",
		"einvoice:portal_errors:rate5m",
		"einvoice:captcha_rejection:ratio1h",
		"einvoice:enrichment_failures:rate5m",
		"einvoice:invoices_committed:increase1h",
	}
	require.Len(t, group.Rules, len(expected))
	for i, rule := range group.Rules {
		assert.Equal(t, expected[i], rule.Record)
		assert.True(t, KnownMetrics[rule.Record], "%s missing from KnownMetrics", rule.Record)
	}

	result := validate.Exprs(cr.Exprs(), KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestAlertRules(t *testing.T) {
	t.Parallel()

	cr := rules.AlertRules(2000)
	assert.Equal(t, "einvoice-alerts", cr.Metadata.Name)
	require.Len(t, cr.Spec.Groups, 1)

	expected := []string{
		"EinvoiceTrackerDown",
		"EinvoiceStoreUnreachable",
		"EinvoiceCyclesFailing",
		"EinvoiceLoginFailures",
		"EinvoiceCaptchaRejectionHigh",
		"EinvoicePortalQuotaHigh",
		"EinvoicePortalLimitReached",
		"EinvoiceNotificationFailures",
	}
	group := cr.Spec.Groups[0]
	require.Len(t, group.Rules, len(expected))
	for i, rule := range group.Rules {
		assert.Equal(t, expected[i], rule.Alert)
		assert.NotEmpty(t, rule.Labels["severity"], "alert %s missing severity", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], "alert %s missing summary", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], "alert %s missing description", rule.Alert)
	}
	assert.Equal(t, "einvoice_portal_daily_usage > 1600", group.Rules[5].Expr)

	result := validate.Exprs(cr.Exprs(), KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestRun_WritesArtifacts(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()

	written, err := run(cfg, false)
	require.NoError(t, err)
	require.Len(t, written, 3)

	dashPath := filepath.Join(cfg.OutputDir, "grafana", "data", "einvoice-overview.json")
	assert.FileExists(t, dashPath)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "prometheus", "einvoice-alerts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), generatedHeader)
	assert.Contains(t, string(data), "kind: PrometheusRule")

	var cr rules.PrometheusRule
	require.NoError(t, yaml.Unmarshal(data, &cr))
	assert.Len(t, cr.Spec.Groups[0].Rules, 8)
}

func TestRun_PlainRules(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.DashboardEnabled = false
	cfg.PlainRules = true

	written, err := run(cfg, false)
	require.NoError(t, err)
	require.Len(t, written, 2)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "prometheus", "einvoice-recording-rules.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "apiVersion")

	var f rules.RuleFile
	require.NoError(t, yaml.Unmarshal(data, &f))
	require.Len(t, f.Groups, 1)
	assert.Equal(t, "einvoice-recording", f.Groups[0].Name)
}

func TestRun_ValidateOnlyWritesNothing(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	written, err := run(cfg, true)
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NoDirExists(t, cfg.OutputDir)
}
