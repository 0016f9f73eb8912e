package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fairwaymarket/teesheet/internal/provider"
)

func TestNewBuildsEveryKnownProvider(t *testing.T) {
	configs := map[string]string{
		provider.ForeUp:        `{"username":"u","password":"p","courseId":"1"}`,
		provider.ClubProphet:   `{"baseUrl":"https://cps.example.com","clientId":"c","clientSecret":"s","componentId":"x","courseId":"1"}`,
		provider.Lightspeed:    `{"clientId":"c","clientSecret":"s","clubId":"77"}`,
		provider.QuickEighteen: `{"subdomain":"pinevalley","username":"u","password":"p"}`,
	}
	for providerID, cfg := range configs {
		api, err := New(providerID, json.RawMessage(cfg), provider.Deps{})
		if err != nil {
			t.Fatalf("%s: %v", providerID, err)
		}
		if api.ProviderID() != providerID {
			t.Fatalf("%s: adapter reports %q", providerID, api.ProviderID())
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("teesnap", json.RawMessage(`{}`), provider.Deps{})
	if !errors.Is(err, provider.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNewBadConfig(t *testing.T) {
	if _, err := New(provider.ForeUp, json.RawMessage(`{`), provider.Deps{}); err == nil {
		t.Fatal("malformed configuration must fail")
	}
}
