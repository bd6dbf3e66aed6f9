package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/larsvik/berth/internal/constants"
)

// ServerConfig is the berthd daemon configuration.
type ServerConfig struct {
	API struct {
		ListenAddr string `yaml:"listen_addr" json:"listenAddr" koanf:"listenAddr"`
	} `yaml:"api" json:"api" koanf:"api"`
	KnownHostsFile string `yaml:"known_hosts_file" json:"knownHostsFile" koanf:"knownHostsFile"`
}

// Normalize sets default values for ServerConfig.
func (sc *ServerConfig) Normalize() *ServerConfig {
	if sc.API.ListenAddr == "" {
		sc.API.ListenAddr = net.JoinHostPort("127.0.0.1", constants.APIServerPort)
	}
	return sc
}

func (sc *ServerConfig) Validate() error {
	if sc.API.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(sc.API.ListenAddr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", sc.API.ListenAddr, err)
		}
	}
	return nil
}

// LoadServerConfig reads the daemon config file. A missing file is not an
// error; defaults apply.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	serverConfig := &ServerConfig{}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return serverConfig.Normalize(), nil
	}

	k := koanf.New(".")
	parser, err := getConfigParser(configPath)
	if err != nil {
		return nil, err
	}
	format, err := getConfigFormat(configPath)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configPath), parser); err != nil {
		return nil, fmt.Errorf("failed to load server config file: %w", err)
	}

	// Decode with the file format's tags so the keys SaveServerConfig
	// writes read back unchanged.
	if err := k.UnmarshalWithConf("", serverConfig, koanf.UnmarshalConf{Tag: format}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	serverConfig.Normalize()
	if err := serverConfig.Validate(); err != nil {
		return nil, err
	}
	return serverConfig, nil
}

// SaveServerConfig writes the config back as YAML or JSON depending on the
// file extension.
func SaveServerConfig(config *ServerConfig, configPath string) error {
	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default: // yaml
		data, err = yaml.Marshal(config)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, constants.ModeFileDefault)
}
