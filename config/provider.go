package config

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(ProvideConfig),
)

func ProvideConfig() (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
