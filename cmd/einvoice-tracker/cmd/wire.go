package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/donaldgifford/einvoice-tracker/internal/browser"
	"github.com/donaldgifford/einvoice-tracker/internal/captcha"
	"github.com/donaldgifford/einvoice-tracker/internal/config"
	"github.com/donaldgifford/einvoice-tracker/internal/enrich"
	"github.com/donaldgifford/einvoice-tracker/internal/notify"
	"github.com/donaldgifford/einvoice-tracker/internal/portal"
)

func buildAcquirer(cfg *config.Config, log *slog.Logger) *portal.SessionAcquirer {
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		ExecPath:     cfg.Browser.ExecPath,
		Headless:     *cfg.Browser.Headless,
		UserAgent:    cfg.Browser.UserAgent,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
	}, log)

	solver := captcha.NewHTTPSolver(cfg.Captcha.Endpoint,
		captcha.WithHTTPClient(&http.Client{Timeout: cfg.Captcha.Timeout}),
	)

	p := &cfg.Portal
	return portal.NewSessionAcquirer(launcher, solver,
		portal.Credentials{Phone: p.Phone, Password: p.Password},
		portal.WithPortalURLs(p.LoginURL, p.SearchURL, p.Origin),
		portal.WithCaptchaAttempts(p.CaptchaAttempts, p.CaptchaRetryDelay),
		portal.WithBrowserTimings(p.ElementTimeout, p.SettleDelay),
		portal.WithAcquirerLogger(log),
	)
}

func buildPortalClient(cfg *config.Config, loc *time.Location, log *slog.Logger) *portal.Client {
	p := &cfg.Portal
	limiter := portal.NewRateLimiter(p.RateLimit.PerSecond, p.RateLimit.Burst, p.RateLimit.DailyLimit)

	return portal.NewClient(
		portal.WithAPIURL(p.APIURL),
		portal.WithRequestTimeout(p.RequestTimeout),
		portal.WithRateLimiter(limiter),
		portal.WithLocation(loc),
		portal.WithPageSize(p.PageSize),
		portal.WithMaxRelogin(*p.MaxRelogin),
		portal.WithPacing(p.PreflightDelay, p.PageDelay),
		portal.WithLogger(log),
	)
}

// buildEnricher returns Noop when the hosted OpenAI API is selected without
// a key, since every call would be refused.
func buildEnricher(cfg *config.EnrichConfig, log *slog.Logger) (enrich.Enricher, error) {
	common := []enrich.LLMEnricherOption{
		enrich.WithCategories(cfg.Categories),
		enrich.WithPersona(cfg.Persona),
		enrich.WithTimeout(cfg.Timeout),
	}

	switch cfg.Backend {
	case "none":
		return enrich.Noop{}, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" && cfg.OpenAI.Hosted() {
			log.Warn("openai api key not set, enrichment disabled", "endpoint", cfg.OpenAI.Endpoint)
			return enrich.Noop{}, nil
		}
		backend := enrich.NewOpenAIBackend(cfg.OpenAI.APIKey,
			enrich.WithOpenAIBaseURL(cfg.OpenAI.Endpoint),
			enrich.WithOpenAIModel(cfg.OpenAI.DescribeModel),
		)
		opts := append(common, enrich.WithModels(cfg.OpenAI.CategorizeModel, cfg.OpenAI.DescribeModel))
		return enrich.NewLLMEnricher(backend, opts...), nil
	case "anthropic":
		backend := enrich.NewAnthropicBackend(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
		opts := append(common, enrich.WithModels(cfg.Anthropic.Model, cfg.Anthropic.Model))
		return enrich.NewLLMEnricher(backend, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported enrich backend %q", cfg.Backend)
	}
}

// buildNotifier fans out to every enabled channel. With none enabled,
// invoices are still recorded and only logged.
func buildNotifier(cfg *config.NotificationsConfig, log *slog.Logger) notify.Notifier {
	var targets notify.Multi
	if cfg.Telegram.Enabled {
		targets = append(targets, notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			notify.WithTelegramAPIURL(cfg.Telegram.APIURL),
		))
	}
	if cfg.Discord.Enabled {
		targets = append(targets, notify.NewDiscordNotifier(cfg.Discord.WebhookURL))
	}

	switch len(targets) {
	case 0:
		log.Warn("no notification channel enabled")
		return notify.NewNoOpNotifier(log)
	case 1:
		return targets[0]
	default:
		return targets
	}
}
