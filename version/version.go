package version

// Set at build time with -ldflags "-X wappi2mqtt/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitURL    = "https://github.com/wappi/wappi2mqtt"
	BuildDate = "unknown"
)
