package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/friction/internal/scanner"
	"github.com/mesh-intelligence/friction/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "FRICTION"
)

// Config keys.
const (
	cfgKeyDataDir     = "data_dir"
	cfgKeyDBFile      = "db_file"
	cfgKeyListenAddr  = "listen_addr"
	cfgKeyScanHost    = "scan.host"
	cfgKeyScanTimeout = "scan.timeout"
	cfgKeyScanWorkers = "scan.workers"
	cfgKeyLogLevel    = "log.level"
	cfgKeyLogFormat   = "log.format"
)

const defaultListenAddr = "127.0.0.1:8420"

// envKeys are the keys that FRICTION_* variables override. data_dir is
// left out: FRICTION_DATA_DIR ranks below the config file and is handled
// by paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyDBFile,
	cfgKeyListenAddr,
	cfgKeyScanHost,
	cfgKeyScanTimeout,
	cfgKeyScanWorkers,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	DataDir    string        `yaml:"data_dir,omitempty"`
	DBFile     string        `yaml:"db_file"`
	ListenAddr string        `yaml:"listen_addr"`
	Scan       scanConfig    `yaml:"scan"`
	Log        logFileConfig `yaml:"log"`
}

type scanConfig struct {
	Host    string `yaml:"host"`
	Timeout string `yaml:"timeout"`
	Workers int    `yaml:"workers"`
}

type logFileConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir:    dataDir,
		DBFile:     types.DefaultDBFile,
		ListenAddr: defaultListenAddr,
		Scan: scanConfig{
			Host:    scanner.DefaultHost,
			Timeout: scanner.DefaultTimeout.String(),
			Workers: scanner.DefaultWorkers,
		},
		Log: logFileConfig{Level: "info", Format: "text"},
	}
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetDefault(cfgKeyScanHost, scanner.DefaultHost)
	v.SetDefault(cfgKeyScanTimeout, scanner.DefaultTimeout)
	v.SetDefault(cfgKeyScanWorkers, scanner.DefaultWorkers)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
