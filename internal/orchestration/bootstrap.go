package orchestration

import (
	"fmt"
	"strings"

	"voxsearch/internal/logger"
	"voxsearch/internal/services"
	"voxsearch/pkg/voxtypes"
)

// SetupOptions configures SetupServices.
type SetupOptions struct {
	Config services.ConfigurationOptions
	// MarkdownStyle is a Glamour style name. Empty falls back to the
	// configured markdown_style, then auto-detection.
	MarkdownStyle string
	// KeywordOptions are merged over the values derived from configuration.
	KeywordOptions services.KeywordServiceOptions
	// TraceHTTP routes provider traffic through the debug transport. It is
	// also enabled when the effective log level is debug.
	TraceHTTP bool
}

// SetupServices builds a registry with every voxsearch service, initializes it
// and installs it as the global registry.
func SetupServices(opts SetupOptions) (*services.Registry, error) {
	registry := services.NewRegistry()

	configService := services.NewConfigurationService(opts.Config)
	if err := configService.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	extraction := configService.ExtractionOptions()
	// Boolean operators are only added to comparison queries.
	extraction.IncludeBoolean = false

	keywordOptions := opts.KeywordOptions
	if keywordOptions.Timeout <= 0 {
		keywordOptions.Timeout = configService.RequestTimeout()
	}
	if keywordOptions.Extraction == nil {
		keywordOptions.Extraction = &extraction
	}

	logLevel, err := configService.GetConfigValue(services.ConfigKeyLogLevel)
	if err != nil {
		return nil, err
	}
	style := opts.MarkdownStyle
	if style == "" {
		if style, err = configService.GetConfigValue(services.ConfigKeyMarkdownStyle); err != nil {
			return nil, err
		}
	}

	debugTransport := services.NewDebugTransportService()
	if opts.TraceHTTP || strings.EqualFold(logLevel, "debug") {
		if err := debugTransport.Initialize(); err != nil {
			return nil, err
		}
		keywordOptions.Transport = debugTransport.CreateTransport(keywordOptions.Transport)
	}

	providerCatalog := services.NewProviderCatalogService()
	clientFactory := services.NewClientFactoryService()

	for _, service := range []voxtypes.Service{
		configService,
		providerCatalog,
		services.NewEngineCatalogService(),
		clientFactory,
		services.NewKeywordService(providerCatalog, clientFactory, keywordOptions),
		services.NewMarkdownService(style),
		services.NewClipboardService(),
		debugTransport,
	} {
		if err := registry.RegisterService(service); err != nil {
			return nil, err
		}
	}

	if err := registry.InitializeAll(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	services.SetGlobalRegistry(registry)
	logger.Debug("Services initialized", "services", registry.ServiceNames())
	return registry, nil
}
