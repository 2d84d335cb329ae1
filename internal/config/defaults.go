package config

// Operating modes for the distribution dispatcher.
const (
	ModeDemo = "demo"
	ModeLive = "live"
)

// Secret store backends.
const (
	BackendLocal = "local"
	BackendVault = "vault"
)

const (
	defaultLogDir                = "~/.local/share/airlift/logs"
	defaultCredentialsDir        = "~/.config/airlift/credentials"
	defaultSessionsDir           = "~/.local/share/airlift/sessions"
	defaultAPIBind               = "127.0.0.1:7787"
	defaultLoginTimeout          = 15
	defaultUploadTimeout         = 20
	defaultVaultAddress          = "http://127.0.0.1:8200"
	defaultSecretsRequestTimeout = 5
	defaultNtfyRequestTimeout    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// KnownPlatforms lists the platform integrations shipped with the dispatcher.
var KnownPlatforms = []string{"spotify", "apple", "soundcloud", "audiomack"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	platforms := make(map[string]bool, len(KnownPlatforms))
	for _, name := range KnownPlatforms {
		platforms[name] = true
	}

	return Config{
		Paths: Paths{
			LogDir:         defaultLogDir,
			CredentialsDir: defaultCredentialsDir,
			SessionsDir:    defaultSessionsDir,
			APIBind:        defaultAPIBind,
		},
		Distribution: Distribution{
			Mode:          ModeDemo,
			Platforms:     platforms,
			LoginTimeout:  defaultLoginTimeout,
			UploadTimeout: defaultUploadTimeout,
		},
		Secrets: Secrets{
			Backend:        BackendLocal,
			VaultAddress:   defaultVaultAddress,
			RequestTimeout: defaultSecretsRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
