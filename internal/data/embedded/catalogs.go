// Package embedded provides access to embedded catalog data files.
package embedded

import _ "embed"

// ProviderCatalogData contains the embedded keyword provider catalog YAML data.
//
//go:embed providers.yaml
var ProviderCatalogData []byte

// EngineCatalogData contains the embedded search engine catalog YAML data.
//
//go:embed engines.yaml
var EngineCatalogData []byte
