package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                   string // connection string for the database
	NatsURL              string // URL of the NATS server used for live updates
	WaitForServices      string // duration to wait for other services to be ready
	LogLevel             string // sets the log level (zap log level values)
	SQLLogLevel          string // sets the log level for sql subsystem
	LogFormat            string // text vs json
	LogConfig            string // path to log config file
	MigrationSourceURL   string // location of migration files
	EnableTelemetry      bool   // enable telemetry
	TelemetryEndpoint    string // endpoint for telemetry
	ProfilingPort        int    // port for profiling
	PrintMessage         bool   // if true, the message payload will be print on debug level
	APIServerAddr        string // listen addr for the API server (insecure)
	TLSServerAddr        string // listen addr for the API server (tls)
	TLSCertFile          string // path to TLS certificate
	TLSKeyFile           string // path to TLS key
	TLSCAFile            string // path to TLS CA
	TraefikCerts         string // path to traefik certs file
	TraefikCertDomain    string // the domain to lookup within the traefik certs
	ProviderToken        string // token for data provider access
	AdminToken           string // token for admin access
	StaleDuration        string // duration after which an analysis session is considered stale
	MaxConcurrentStreams int    // max number of concurrent streams per connection

)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintMessage bool // if true, the message payload will be print on debug level
}
