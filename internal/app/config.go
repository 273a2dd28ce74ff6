package app

// Config holds runtime configuration for the tool host.
type Config struct {
	// APIKey for the upstream search API. Empty means resolve from the
	// environment at client construction.
	APIKey string

	// BaseURL overrides the upstream endpoint; empty uses the default.
	BaseURL string

	// OutputDir is the default directory for file-mode search results.
	OutputDir string

	// ListenAddr is the address the HTTP tool host binds to.
	ListenAddr string

	// RateRPS caps upstream requests per second; zero disables limiting.
	RateRPS float64

	Verbose bool
}
