package auth

import (
	"time"

	"bidhub/config"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Session.Issuer = "bidhub-test"
	cfg.Session.Kinds.Company = config.SessionKindConfig{Secret: "company_secret_key_very_long_for_testing", TTL: 24 * time.Hour}
	cfg.Session.Kinds.Worker = config.SessionKindConfig{Secret: "worker_secret_key_very_long_for_testing", TTL: 24 * time.Hour}
	cfg.Session.Kinds.Admin = config.SessionKindConfig{Secret: "admin_secret_key_very_long_for_testing", TTL: time.Hour}

	return cfg
}
