package rules

import "fmt"

// AlertRules returns the operational alerts for einvoice-tracker.
// dailyLimit is the portal call budget the quota alert is measured against.
func AlertRules(dailyLimit int) PrometheusRule {
	return newRule("einvoice-alerts", RuleGroup{
		Name: "einvoice-alerts",
		Rules: []Rule{
			alert("EinvoiceTrackerDown", `absent(up{job="einvoice-tracker"})`, "5m", "critical",
				"E-invoice tracker is down",
				"The einvoice-tracker job has been absent for more than 5 minutes."),
			alert("EinvoiceStoreUnreachable", `einvoice_readyz_up == 0`, "5m", "critical",
				"Dedup store is unreachable",
				"The readiness probe cannot reach the dedup store; new invoices cannot be committed."),
			alert("EinvoiceCyclesFailing",
				`sum(increase(einvoice_cycles_total{outcome="failure"}[3h])) > 0`+
					` and sum(increase(einvoice_cycles_total{outcome="success"}[3h])) == 0`,
				"0m", "critical",
				"Every fetch cycle in the last 3 hours failed",
				"No cycle has completed successfully in 3 hours. Check portal login and the token exchange."),
			alert("EinvoiceLoginFailures", `increase(einvoice_login_failures_total[1h]) > 0`, "0m", "warning",
				"Portal login exhausted its captcha attempts",
				"At least one login ran out of captcha attempts in the last hour."),
			alert("EinvoiceCaptchaRejectionHigh", `einvoice:captcha_rejection:ratio1h > 0.8`, "30m", "warning",
				"Most captcha guesses are rejected",
				"More than 80% of captcha submissions were rejected over the last hour. The OCR service may need attention."),
			alert("EinvoicePortalQuotaHigh",
				fmt.Sprintf(`einvoice_portal_daily_usage > %d`, dailyLimit*8/10),
				"5m", "warning",
				"Portal call budget above 80%",
				fmt.Sprintf("Rolling 24h portal calls exceeded %d (budget is %d).", dailyLimit*8/10, dailyLimit)),
			alert("EinvoicePortalLimitReached", `increase(einvoice_portal_daily_limit_hits_total[5m]) > 0`, "0m", "critical",
				"Portal call budget exhausted",
				"The daily portal call budget is exhausted. Cycles fail until the window rolls over."),
			alert("EinvoiceNotificationFailures", `increase(einvoice_notification_failures_total[15m]) > 0`, "0m", "warning",
				"Invoice notifications failed",
				"One or more invoice notifications failed to send. The invoices are committed and will not be retried."),
		},
	})
}

func alert(name, expr, forDur, severity, summary, description string) Rule {
	return Rule{
		Alert:  name,
		Expr:   expr,
		For:    forDur,
		Labels: map[string]string{"severity": severity},
		Annotations: map[string]string{
			"summary":     summary,
			"description": description,
		},
	}
}
