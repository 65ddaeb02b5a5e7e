package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParameterSource fetches a decrypted SSM parameter value by name.
type ParameterSource interface {
	GetParameterValue(ctx context.Context, name string) (string, error)
}

func DatabaseParameterName(env string) string {
	return fmt.Sprintf("/deaglo/platform/%s/database", env)
}

func SettingsParameterName(env string) string {
	return fmt.Sprintf("/deaglo/api-gateway/%s/settings", env)
}

// ApplySSM overlays the JSON documents stored in SSM on top of cfg. A value
// that was set explicitly through the environment is never replaced.
func ApplySSM(ctx context.Context, cfg *Config, src ParameterSource) error {
	dbDoc, err := fetchDocument(ctx, src, DatabaseParameterName(cfg.Environment))
	if err != nil {
		return err
	}
	overlay(dbDoc, "DB_HOST", "database.host", &cfg.Database.Host)
	overlay(dbDoc, "DB_PORT", "database.port", &cfg.Database.Port)
	overlay(dbDoc, "DB_NAME", "database.name", &cfg.Database.Name)
	overlay(dbDoc, "DB_USER", "database.user", &cfg.Database.User)
	overlay(dbDoc, "DB_PASSWORD", "database.password", &cfg.Database.Password)

	settings, err := fetchDocument(ctx, src, SettingsParameterName(cfg.Environment))
	if err != nil {
		return err
	}
	overlay(settings, "SYSTEM_EMAIL", "email.system_email", &cfg.Email.SystemEmail)
	overlay(settings, "SECRET_KEY", "auth.secret_key", &cfg.Auth.SecretKey)
	overlayInt(settings, "ACCESS_TTL", "auth.access_ttl", &cfg.Auth.AccessTTLDays)
	overlayInt(settings, "REFRESH_TTL", "auth.refresh_ttl", &cfg.Auth.RefreshTTLDays)
	overlay(settings, "SIMULATION_QUEUE_URL", "simulation.queue_url", &cfg.Simulation.QueueURL)
	overlay(settings, "BUCKET_NAME", "storage.bucket_name", &cfg.Storage.BucketName)
	overlay(settings, "LINKEDIN_CLIENT_ID", "linkedin.client_id", &cfg.LinkedIn.ClientID)
	overlay(settings, "LINKEDIN_CLIENT_SECRET", "linkedin.client_secret", &cfg.LinkedIn.ClientSecret)
	overlay(settings, "LINKEDIN_REDIRECT_URI_AUTH", "linkedin.redirect_uri_auth", &cfg.LinkedIn.RedirectURIAuth)
	overlay(settings, "LINKEDIN_REDIRECT_URI_LINK", "linkedin.redirect_uri_link", &cfg.LinkedIn.RedirectURILink)
	overlay(settings, "FENICS_USERNAME", "fenics.username", &cfg.Fenics.Username)
	overlay(settings, "FENICS_PASSWORD", "fenics.password", &cfg.Fenics.Password)
	overlay(settings, "FENICS_PRICING_API_URL", "fenics.pricing_api_url", &cfg.Fenics.PricingAPIURL)
	return nil
}

func fetchDocument(ctx context.Context, src ParameterSource, name string) (map[string]any, error) {
	raw, err := src.GetParameterValue(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ssm parameter %s: %w", name, err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("ssm parameter %s is not valid json: %w", name, err)
	}
	return doc, nil
}

func envName(key string) string {
	return strings.ToUpper(EnvPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
}

func overlay(doc map[string]any, docKey, cfgKey string, dst *string) {
	if _, ok := os.LookupEnv(envName(cfgKey)); ok {
		return
	}
	val, ok := doc[docKey]
	if !ok || val == nil {
		return
	}
	switch v := val.(type) {
	case string:
		*dst = v
	case float64:
		*dst = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		*dst = fmt.Sprint(v)
	}
}

func overlayInt(doc map[string]any, docKey, cfgKey string, dst *int) {
	var raw string
	overlay(doc, docKey, cfgKey, &raw)
	if raw == "" {
		return
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = n
	}
}
