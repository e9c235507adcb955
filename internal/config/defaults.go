package config

const (
	defaultLogDir           = "~/.local/share/assetcdn/logs"
	defaultStoreDriver      = StoreDriverS3
	defaultStoreEndpoint    = "s3.amazonaws.com"
	defaultStoreRegion      = "us-east-1"
	defaultLocalStoreDir    = "~/.local/share/assetcdn/objects"
	defaultCDNSSL           = SSLHTTPS
	defaultConcurrency      = 8
	defaultUploadAttempts   = 5
	defaultRetryBaseDelayMs = 1000
	defaultRetryMaxDelayMs  = 30000
	defaultOptiPNGBinary    = "optipng"
	defaultJpegtranBinary   = "jpegtran"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Store drivers.
const (
	StoreDriverS3    = "s3"
	StoreDriverLocal = "local"
)

// CDN scheme modes.
const (
	SSLHTTPS    = "https"
	SSLHTTP     = "http"
	SSLRelative = "relative"
)

var defaultScanExtensions = []string{".jade", ".ejs", ".pug", ".html", ".tmpl", ".gohtml"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Store: Store{
			Driver:   defaultStoreDriver,
			Endpoint: defaultStoreEndpoint,
			Region:   defaultStoreRegion,
			UseSSL:   true,
			LocalDir: defaultLocalStoreDir,
		},
		CDN: CDN{
			SSL: defaultCDNSSL,
		},
		Publish: Publish{
			Concurrency:      defaultConcurrency,
			UploadAttempts:   defaultUploadAttempts,
			RetryBaseDelayMs: defaultRetryBaseDelayMs,
			RetryMaxDelayMs:  defaultRetryMaxDelayMs,
		},
		Optimizers: Optimizers{
			OptiPNG:  defaultOptiPNGBinary,
			Jpegtran: defaultJpegtranBinary,
		},
		Scan: Scan{
			Extensions: append([]string(nil), defaultScanExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
