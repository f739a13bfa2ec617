package casino

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/utils"
)

const (
	FamilyCashdesk = "cashdesk"
	FamilyMostbet  = "mostbet"
)

// Credentials is one provider's secret bundle. Cashdesk providers use
// Hash/CashierPass/Login/CashdeskID, mostbet uses APIKey/Secret/CashpointID.
type Credentials struct {
	Family string

	Hash        string
	CashierPass string
	Login       string
	CashdeskID  string

	APIKey      string
	Secret      string
	CashpointID string
}

func (c *Credentials) complete() bool {
	if c == nil {
		return false
	}
	switch c.Family {
	case FamilyCashdesk:
		return c.Hash != "" && c.CashierPass != "" && c.Login != "" && c.CashdeskID != ""
	case FamilyMostbet:
		return c.APIKey != "" && c.Secret != "" && c.CashpointID != ""
	}
	return false
}

type provider struct {
	match     string
	configKey string
	family    string
}

// first match wins
var providers = []provider{
	{match: "1xbet", configKey: "1xbet_api_config", family: FamilyCashdesk},
	{match: "melbet", configKey: "melbet_api_config", family: FamilyCashdesk},
	{match: "mostbet", configKey: "mostbet_api_config", family: FamilyMostbet},
}

func lookupProvider(bookmaker string) (provider, bool) {
	name := strings.ToLower(bookmaker)
	for _, p := range providers {
		if strings.Contains(name, p.match) {
			return p, true
		}
	}
	return provider{}, false
}

type ConfigStore interface {
	GetConfiguration(ctx context.Context, key string) (*models.BotConfiguration, error)
}

// Fallbacks are used when the configuration table holds no usable override.
type Fallbacks struct {
	Xbet    Credentials
	Melbet  Credentials
	Mostbet Credentials
}

func FallbacksFromConfig(cfg config.CasinoConfig) Fallbacks {
	return Fallbacks{
		Xbet: Credentials{
			Family:      FamilyCashdesk,
			Hash:        cfg.XbetHash,
			CashierPass: cfg.XbetCashierPass,
			Login:       cfg.XbetLogin,
			CashdeskID:  cfg.XbetCashdeskID,
		},
		Melbet: Credentials{
			Family:      FamilyCashdesk,
			Hash:        cfg.MelbetHash,
			CashierPass: cfg.MelbetCashierPass,
			Login:       cfg.MelbetLogin,
			CashdeskID:  cfg.MelbetCashdeskID,
		},
		Mostbet: Credentials{
			Family:      FamilyMostbet,
			APIKey:      cfg.MostbetAPIKey,
			Secret:      cfg.MostbetSecret,
			CashpointID: cfg.MostbetCashpointID,
		},
	}
}

func (f Fallbacks) lookup(p provider) Credentials {
	switch p.match {
	case "1xbet":
		return f.Xbet
	case "melbet":
		return f.Melbet
	default:
		return f.Mostbet
	}
}

type Resolver struct {
	store     ConfigStore
	fallbacks Fallbacks
	logger    *utils.Logger
}

func NewResolver(store ConfigStore, fallbacks Fallbacks, logger *utils.Logger) *Resolver {
	return &Resolver{store: store, fallbacks: fallbacks, logger: logger}
}

// Resolve returns the credentials for bookmaker. The stored override is read
// on every call; the fallback bundle is used when it is missing or incomplete.
func (r *Resolver) Resolve(ctx context.Context, bookmaker string) (*Credentials, bool) {
	p, ok := lookupProvider(bookmaker)
	if !ok {
		return nil, false
	}

	stored, err := r.stored(ctx, p)
	if err != nil {
		r.logger.Warnf("Failed to read %s, using fallback: %v", p.configKey, err)
	}
	if stored.complete() {
		return stored, true
	}

	fallback := r.fallbacks.lookup(p)
	if !fallback.complete() {
		return nil, false
	}
	return &fallback, true
}

func (r *Resolver) stored(ctx context.Context, p provider) (*Credentials, error) {
	setting, err := r.store.GetConfiguration(ctx, p.configKey)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}

	fields, err := decodeConfigValue(setting.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", p.configKey, err)
	}

	creds := &Credentials{Family: p.family}
	switch p.family {
	case FamilyCashdesk:
		creds.Hash = text(fields["hash"])
		creds.CashierPass = text(fields["cashierpass"])
		creds.Login = text(fields["login"])
		creds.CashdeskID = text(fields["cashdeskid"])
	case FamilyMostbet:
		creds.APIKey = text(fields["api_key"])
		creds.Secret = text(fields["secret"])
		creds.CashpointID = text(fields["cashpoint_id"])
	}
	return creds, nil
}

// decodeConfigValue accepts a JSON object or a JSON string holding one.
func decodeConfigValue(raw string) (map[string]interface{}, error) {
	var value interface{}
	if err := decodeJSON(raw, &value); err != nil {
		return nil, err
	}
	if inner, ok := value.(string); ok {
		if err := decodeJSON(inner, &value); err != nil {
			return nil, err
		}
	}
	fields, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", value)
	}
	return fields, nil
}

func decodeJSON(raw string, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}

// text renders strings and numbers; numbers keep their literal form.
func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}
