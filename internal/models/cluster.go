package models

// CollectionMode selects how the scraping provider interprets a cluster's
// items: direct collection by URL, or discovery by search keyword.
type CollectionMode string

const (
	// CollectByURL submits items as page URLs to collect directly.
	CollectByURL CollectionMode = "collect"

	// DiscoverByKeyword submits items as search keywords for discovery.
	DiscoverByKeyword CollectionMode = "discover"
)

// Cluster is a named, ordered group of scrape targets parsed from the
// catalog sheet. Clusters are rebuilt from the sheet on every run and never
// mutated after parsing.
//
// Active aggregates across all source rows for the name: a cluster is active
// if any of its rows was flagged active. Position records catalog encounter
// order and breaks ties between equal Order values.
type Cluster struct {
	Name     string
	Order    int
	Position int
	Active   bool
	Items    []string
	Mode     CollectionMode
}
