// Package registry constructs provider adapters from a course's stored
// provider id and configuration blob.
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/fairwaymarket/teesheet/internal/clubprophet"
	"github.com/fairwaymarket/teesheet/internal/foreup"
	"github.com/fairwaymarket/teesheet/internal/lightspeed"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/quickeighteen"
)

// New builds the adapter for providerID from its JSON configuration.
// Adding a provider means adding a case here; callers never import adapter
// packages directly.
func New(providerID string, rawCfg json.RawMessage, deps provider.Deps) (provider.API, error) {
	switch providerID {
	case provider.ForeUp:
		return foreup.New(rawCfg, deps)
	case provider.ClubProphet:
		return clubprophet.New(rawCfg, deps)
	case provider.Lightspeed:
		return lightspeed.New(rawCfg, deps)
	case provider.QuickEighteen:
		return quickeighteen.New(rawCfg, deps)
	default:
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, providerID)
	}
}
