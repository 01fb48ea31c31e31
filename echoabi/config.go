package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/purelabio/echo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

/*
Settings for the commands that talk to a node. Loaded from the YAML file given
by "--config"; fields missing from the file keep their defaults.

	node_url: wss://node.example.com/ws
	caller_id: 1.2.123
	asset_id: 1.3.0
	log_level: info
	development: false
	reconnect_interval: 1s
*/
type Config struct {
	NodeUrl           string        `yaml:"node_url"`
	CallerId          string        `yaml:"caller_id"`
	AssetId           string        `yaml:"asset_id"`
	LogLevel          string        `yaml:"log_level"`
	Development       bool          `yaml:"development"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

func DefaultConfig() Config {
	return Config{
		NodeUrl:           "ws://127.0.0.1:6311",
		AssetId:           echo.DefaultAssetId,
		LogLevel:          "info",
		ReconnectInterval: time.Second,
	}
}

// An empty path means defaults only.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, `failed to read config %q`, path)
	}

	err = yaml.UnmarshalStrict(data, &conf)
	if err != nil {
		return conf, errors.Wrapf(err, `failed to decode config %q`, path)
	}

	return conf, conf.Validate()
}

func (self Config) Validate() error {
	if self.NodeUrl == "" {
		return errors.New(`config: "node_url" is required`)
	}
	if self.CallerId != "" {
		id, err := echo.ParseObjectId(self.CallerId)
		if err != nil || !id.IsAccount() {
			return errors.Errorf(`config: "caller_id" must be an account id, got %q`, self.CallerId)
		}
	}
	if _, err := echo.ParseObjectId(self.AssetId); err != nil {
		return errors.Errorf(`config: malformed "asset_id" %q`, self.AssetId)
	}
	if self.ReconnectInterval <= 0 {
		return errors.New(`config: "reconnect_interval" must be positive`)
	}
	return nil
}

func (self Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(self.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, `config: malformed "log_level"`)
	}

	conf := zap.NewProductionConfig()
	if self.Development {
		conf = zap.NewDevelopmentConfig()
	}
	conf.Level = zap.NewAtomicLevelAt(level)

	logger, err := conf.Build()
	return logger, errors.WithStack(err)
}
