// Package catalog parses the Clusters sheet into named clusters and
// decides processing order. Parsing is deliberately permissive: malformed
// rows are silently excluded, not errors, because the sheet is hand-edited
// and shared across source platforms.
package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Catalog holds the clusters parsed from one sheet read.
type Catalog struct {
	clusters map[string]*models.Cluster
	names    []string // first-seen order
}

// Get returns the named cluster, or nil.
func (c *Catalog) Get(name string) *models.Cluster {
	return c.clusters[name]
}

// Len returns the number of clusters parsed.
func (c *Catalog) Len() int {
	return len(c.clusters)
}

// ActiveOrdered returns the active clusters sorted ascending by order,
// ties broken by Position (catalog encounter order).
func (c *Catalog) ActiveOrdered() []*models.Cluster {
	active := make([]*models.Cluster, 0, len(c.names))
	for _, name := range c.names {
		if cluster := c.clusters[name]; cluster.Active {
			active = append(active, cluster)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Order != active[j].Order {
			return active[i].Order < active[j].Order
		}
		return active[i].Position < active[j].Position
	})
	return active
}

// Parse builds a catalog from raw sheet rows (header excluded). Row shape:
// name | active | order | value | platform (optional).
//
// Skipped without error: rows with fewer than 4 populated columns, an empty
// name or value, an unparseable order, or a platform tag that does not
// start with platformPrefix. The active flag is the case-insensitive value
// "Y"; any active row makes the whole cluster active. The first-seen order
// value and collection mode win for a cluster name.
func Parse(rows [][]string, platformPrefix string) *Catalog {
	catalog := &Catalog{clusters: make(map[string]*models.Cluster)}

	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		platform := ""
		if len(row) >= 5 {
			platform = strings.ToLower(strings.TrimSpace(row[4]))
		}
		if platform != "" && platformPrefix != "" && !strings.HasPrefix(platform, strings.ToLower(platformPrefix)) {
			continue
		}

		active := strings.EqualFold(strings.TrimSpace(row[1]), "Y")

		order, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			continue
		}

		value := strings.TrimSpace(row[3])
		if value == "" {
			continue
		}

		cluster, ok := catalog.clusters[name]
		if !ok {
			cluster = &models.Cluster{
				Name:     name,
				Order:    order,
				Position: len(catalog.names),
				Mode:     modeForPlatform(platform),
			}
			catalog.clusters[name] = cluster
			catalog.names = append(catalog.names, name)
		}
		cluster.Items = append(cluster.Items, value)
		if active {
			cluster.Active = true
		}
	}

	return catalog
}

// modeForPlatform maps a platform tag suffix to the collection mode.
// "<prefix>_discover" and "<prefix>_keyword" select keyword discovery;
// everything else, including a missing tag, collects by URL.
func modeForPlatform(platform string) models.CollectionMode {
	if strings.HasSuffix(platform, "_discover") || strings.HasSuffix(platform, "_keyword") {
		return models.DiscoverByKeyword
	}
	return models.CollectByURL
}

// Service loads the catalog from the store.
type Service struct {
	store          interfaces.TabularStore
	sheet          string
	platformPrefix string
	logger         arbor.ILogger
}

// NewService creates a catalog service.
func NewService(store interfaces.TabularStore, sheet, platformPrefix string, logger arbor.ILogger) *Service {
	return &Service{
		store:          store,
		sheet:          sheet,
		platformPrefix: platformPrefix,
		logger:         logger,
	}
}

// Load reads the Clusters sheet and parses it. Clusters are rebuilt fresh
// on every call; nothing is cached across runs.
func (s *Service) Load(ctx context.Context) (*Catalog, error) {
	grid, err := s.store.ReadRange(ctx, s.sheet, models.Columns(1, 5))
	if err != nil {
		return nil, err
	}
	if len(grid) <= 1 {
		return Parse(nil, s.platformPrefix), nil
	}

	catalog := Parse(grid[1:], s.platformPrefix)
	s.logger.Debug().
		Int("clusters", catalog.Len()).
		Int("active", len(catalog.ActiveOrdered())).
		Msg("Cluster catalog loaded")
	return catalog, nil
}
