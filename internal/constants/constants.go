package constants

import "os"

const (
	Version = "0.1.0"

	DefaultReleasesToKeep  = 10
	DefaultHealthCheckPath = "/health"
	DefaultHealthCheckPort = 3000 // conventional Node app listen port
	DefaultSSHPort         = 22

	APIServerPort       = "9876"
	DefaultAPIServerURL = "http://localhost:9876" // Default URL for the berthd API server

	// Environment variables
	EnvVarAgeIdentity = "BERTH_ENCRYPTION_KEY"
	EnvVarAPIToken    = "BERTH_API_TOKEN"
	EnvVarDebug       = "BERTH_DEBUG"
	EnvVarDataDir     = "BERTH_DATA_DIR"
	EnvVarServerURL   = "BERTH_SERVER_URL"

	// File names
	ServerConfigFileName = "berthd.yaml"
	ConfigEnvFileName    = ".env"
	KnownHostsFileName   = "known_hosts"
	ReleaseLogsDirName   = "logs"
)

// File and directory permissions
const (
	ModeFileSecret  os.FileMode = 0o600 // secrets: .env, keys
	ModeFileDefault os.FileMode = 0o644 // non-secret configs
	ModeDirPrivate  os.FileMode = 0o700 // private dirs
	ModeDirDefault  os.FileMode = 0o755
)
