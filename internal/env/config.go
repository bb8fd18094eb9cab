package env

import (
	"context"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const DefaultSessionServer = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

type Config struct {
	DebugHTTP bool `env:"LODESTONE_DEBUG_HTTP"`

	// Authenticate turns on the encryption exchange and verifies players
	// with SessionServer. Off means offline mode.
	Authenticate         bool   `env:"LODESTONE_AUTHENTICATE,default=true"`
	CompressionThreshold int    `env:"LODESTONE_COMPRESSION_THRESHOLD,default=256"`
	ServerID             string `env:"LODESTONE_SERVER_ID"`
	SessionServer        string `env:"LODESTONE_SESSION_SERVER,default=https://sessionserver.mojang.com/session/minecraft/hasJoined"`
	KeyBits              int    `env:"LODESTONE_KEY_BITS,default=1024"`

	Description string `env:"LODESTONE_DESCRIPTION,default=A lodestone server"`
	MaxPlayers  int    `env:"LODESTONE_MAX_PLAYERS,default=20"`

	// Favicon is the path of a 64x64 PNG for the server list.
	Favicon string `env:"LODESTONE_FAVICON"`

	MaxConnections int `env:"LODESTONE_MAX_CONNECTIONS,default=512"`
	NumListeners   int `env:"LODESTONE_NUM_LISTENERS"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFavicon reads the configured favicon, nil when none is set.
func (c *Config) LoadFavicon() ([]byte, error) {
	if c.Favicon == "" {
		return nil, nil
	}

	return os.ReadFile(c.Favicon)
}

// Defaults maps every variable Config reads to its default value, empty
// when it has none.
func Defaults() map[string]string {
	defaults := map[string]string{}

	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}

		parts := strings.Split(tag, ",")
		defaults[parts[0]] = ""

		for _, opt := range parts[1:] {
			if v := strings.TrimPrefix(opt, "default="); v != opt {
				defaults[parts[0]] = v
			}
		}
	}

	return defaults
}

// Sample renders Defaults in the .env.local format LoadConfig reads.
func Sample() (string, error) {
	return godotenv.Marshal(Defaults())
}
