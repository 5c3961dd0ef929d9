package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/einvoice-tracker/internal/config"
	"github.com/donaldgifford/einvoice-tracker/internal/enrich"
	"github.com/donaldgifford/einvoice-tracker/internal/notify"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const minimalConfig = `
portal:
  phone: "0912345678"
  password: secret
captcha:
  endpoint: http://127.0.0.1:1/ocr
store:
  driver: memory
schedule:
  run_on_start: false
  monthly_enabled: true
`

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestBuildEnricher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend string
		model   string
		openai  config.OpenAIConfig
		want    any
		wantErr bool
	}{
		{name: "none", backend: "none", want: enrich.Noop{}},
		{
			name:    "openai with key",
			backend: "openai",
			openai:  config.OpenAIConfig{APIKey: "sk-test", Endpoint: config.DefaultOpenAIEndpoint},
			want:    &enrich.LLMEnricher{},
		},
		{
			name:    "openai hosted without key is disabled",
			backend: "openai",
			openai:  config.OpenAIConfig{Endpoint: config.DefaultOpenAIEndpoint},
			want:    enrich.Noop{},
		},
		{
			name:    "openai hosted with trailing slash without key is disabled",
			backend: "openai",
			openai:  config.OpenAIConfig{Endpoint: config.DefaultOpenAIEndpoint + "/"},
			want:    enrich.Noop{},
		},
		{
			name:    "openai compatible endpoint without key",
			backend: "openai",
			openai:  config.OpenAIConfig{Endpoint: "http://localhost:11434/v1"},
			want:    &enrich.LLMEnricher{},
		},
		{name: "anthropic", backend: "anthropic", model: "claude-haiku", want: &enrich.LLMEnricher{}},
		{name: "unknown", backend: "ollama", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.EnrichConfig{
				Backend:   tt.backend,
				OpenAI:    tt.openai,
				Anthropic: config.AnthropicConfig{Model: tt.model},
				Timeout:   time.Second,
			}
			got, err := buildEnricher(cfg, quietLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported enrich backend")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestBuildEnricher_UnsetKeyVariable(t *testing.T) {
	// Not parallel: mutates the environment.
	t.Setenv("EINVOICE_TEST_UNSET_OPENAI_KEY", "")

	cfg := parseConfig(t, minimalConfig+`
enrich:
  backend: openai
  openai:
    api_key: ${EINVOICE_TEST_UNSET_OPENAI_KEY}
`)
	require.Empty(t, cfg.Enrich.OpenAI.APIKey)
	require.Equal(t, config.DefaultOpenAIEndpoint, cfg.Enrich.OpenAI.Endpoint)

	got, err := buildEnricher(&cfg.Enrich, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, enrich.Noop{}, got)

	cat, err := got.Categorize(context.Background(), domain.InvoiceItem{Name: "latte", Quantity: 1})
	require.NoError(t, err)
	assert.Empty(t, cat)
}

func TestBuildNotifier(t *testing.T) {
	t.Parallel()

	telegram := config.TelegramConfig{Enabled: true, BotToken: "1:a", ChatID: "2", APIURL: "https://api.telegram.org"}
	discord := config.DiscordConfig{Enabled: true, WebhookURL: "https://discord.example/webhook"}

	tests := []struct {
		name string
		cfg  config.NotificationsConfig
		want any
	}{
		{name: "nothing enabled", want: &notify.NoOpNotifier{}},
		{name: "telegram only", cfg: config.NotificationsConfig{Telegram: telegram}, want: &notify.TelegramNotifier{}},
		{name: "discord only", cfg: config.NotificationsConfig{Discord: discord}, want: &notify.DiscordNotifier{}},
		{
			name: "both",
			cfg:  config.NotificationsConfig{Telegram: telegram, Discord: discord},
			want: notify.Multi{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildNotifier(&tt.cfg, quietLogger())
			assert.IsType(t, tt.want, got)
			if m, ok := got.(notify.Multi); ok {
				assert.Len(t, m, 2)
			}
		})
	}
}

func TestBuildPortalStack(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, minimalConfig)
	loc, err := cfg.Portal.Location()
	require.NoError(t, err)

	assert.NotNil(t, buildAcquirer(cfg, quietLogger()))
	assert.NotNil(t, buildPortalClient(cfg, loc, quietLogger()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, minimalConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// run_on_start is off, so the scheduler only waits and no browser starts.
	require.NoError(t, run(ctx, cfg, quietLogger()))
}

func TestRun_RejectsUnknownTimezone(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, minimalConfig)
	cfg.Portal.Timezone = "Mars/Olympus_Mons"

	err := run(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading portal timezone")
}

func TestConfigPath(t *testing.T) {
	// Not parallel: mutates the environment and viper's global state.
	t.Setenv("EINVOICE_CONFIG", "/etc/einvoice/config.yaml")
	initConfig()
	assert.Equal(t, "/etc/einvoice/config.yaml", configPath())

	require.NoError(t, rootCmd.Flags().Set("config", "./local.yaml"))
	t.Cleanup(func() {
		_ = rootCmd.Flags().Set("config", "config.yaml")
		rootCmd.Flags().Lookup("config").Changed = false
	})
	assert.Equal(t, "./local.yaml", configPath(), "flag wins over env")
}
