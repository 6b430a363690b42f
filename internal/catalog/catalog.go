// Package catalog maintains the versioned list of known integration
// endpoints (exchanges, bridges, gateways, DEXes) and detects
// IntegrationEvents where the transaction graph touches one.
package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

// DefaultUpdateInterval is how long a persisted catalog stays fresh before
// Load refreshes it from the embedded default list.
const DefaultUpdateInterval = 7 * 24 * time.Hour

// Catalog wraps an IntegrationCatalog with address/type lookup indexes.
type Catalog struct {
	data      models.IntegrationCatalog
	byAddress map[string]models.ServiceEndpoint
}

// Load reads path if it exists and is fresher than maxAge; otherwise it
// falls back to the embedded default list and persists it to path. Disk
// errors on the fallback-persist path are logged and swallowed — an
// in-memory catalog is still usable even if it can't be written to disk.
func Load(path string, maxAge time.Duration) (*Catalog, error) {
	if data, err := loadFromDisk(path); err == nil {
		if time.Since(data.LastUpdated) < maxAge {
			return New(data), nil
		}
	}

	data := EmbeddedDefaults()
	if err := persist(path, data); err != nil {
		log.Printf("[Catalog] failed to persist default catalog to %s: %v", path, err)
	}
	return New(data), nil
}

// New builds an in-memory Catalog from data without touching disk, for
// callers that manage persistence themselves (tests, the regression
// harness).
func New(data models.IntegrationCatalog) *Catalog {
	c := &Catalog{data: data, byAddress: make(map[string]models.ServiceEndpoint, len(data.Services))}
	for _, s := range data.Services {
		c.byAddress[s.Address] = s
	}
	return c
}

func loadFromDisk(path string) (models.IntegrationCatalog, error) {
	var data models.IntegrationCatalog
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("catalog: unmarshal %s: %w", path, err)
	}
	return data, nil
}

func persist(path string, data models.IntegrationCatalog) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", path, err)
	}
	return nil
}

// Lookup returns the ServiceEndpoint for addr, if cataloged.
func (c *Catalog) Lookup(addr string) (models.ServiceEndpoint, bool) {
	ep, ok := c.byAddress[addr]
	return ep, ok
}

// FilterByType returns every cataloged endpoint of the given type.
func (c *Catalog) FilterByType(t models.ServiceType) []models.ServiceEndpoint {
	var out []models.ServiceEndpoint
	for _, s := range c.data.Services {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// CheckInvolvement reports whether any address in addrs is cataloged, and
// returns the matching endpoints.
func (c *Catalog) CheckInvolvement(addrs []string) []models.ServiceEndpoint {
	var out []models.ServiceEndpoint
	for _, a := range addrs {
		if ep, ok := c.byAddress[a]; ok {
			out = append(out, ep)
		}
	}
	return out
}

// Version returns the catalog's version number.
func (c *Catalog) Version() int { return c.data.Version }

// EmbeddedDefaults returns the built-in seed catalog used when no fresh
// on-disk catalog is available. Production deployments are expected to
// replace this with a curated list maintained out-of-band; this default
// exists so the pipeline is runnable without one.
func EmbeddedDefaults() models.IntegrationCatalog {
	now := time.Now()
	return models.IntegrationCatalog{
		Version:     1,
		LastUpdated: now,
		Sources:     []string{"embedded-default"},
		Services: []models.ServiceEndpoint{
			{Address: "binance-hot-1", Type: models.ServiceCEX, Name: "Binance", Confidence: 0.95, LastVerified: now},
			{Address: "coinbase-hot-1", Type: models.ServiceCEX, Name: "Coinbase", Confidence: 0.95, LastVerified: now},
			{Address: "kraken-hot-1", Type: models.ServiceCEX, Name: "Kraken", Confidence: 0.9, LastVerified: now},
			{Address: "wormhole-bridge-1", Type: models.ServiceBridge, Name: "Wormhole", Confidence: 0.9, LastVerified: now},
			{Address: "allbridge-1", Type: models.ServiceBridge, Name: "Allbridge", Confidence: 0.85, LastVerified: now},
			{Address: "jupiter-aggregator-1", Type: models.ServiceDEX, Name: "Jupiter", Confidence: 0.85, LastVerified: now},
			{Address: "raydium-amm-1", Type: models.ServiceDEX, Name: "Raydium", Confidence: 0.85, LastVerified: now},
			{Address: "circle-gateway-1", Type: models.ServiceGateway, Name: "Circle", Confidence: 0.8, LastVerified: now},
		},
	}
}
