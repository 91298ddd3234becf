package domain

// Config is the resolved server configuration.
type Config struct {
	FQDN    string `yaml:"fqdn"`
	Bind    string `yaml:"bind"`
	BaseURL string `yaml:"-"`

	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`

	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`

	UserAgent string `yaml:"userAgent"`

	Federation Federation `yaml:"federation"`
}

// Federation controls the remote-facing behavior.
type Federation struct {
	BlockedHosts []string `yaml:"blockedHosts"`

	// AllowUnsignedFetches disables the fetch-signature gate entirely.
	AllowUnsignedFetches bool `yaml:"allowUnsignedFetches"`

	// ExposeSignatureErrors distinguishes a missing signature from a
	// rejected one on fetches. Off by default: distinct statuses leak
	// block-list membership.
	ExposeSignatureErrors bool `yaml:"exposeSignatureErrors"`
}
