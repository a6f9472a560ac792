// Package config loads typed configuration structs from environment
// variables, with optional .env file support for development.
//
// Configuration is entirely environment-driven: the same binary runs in
// development, staging and production with no config files to manage, and
// credentials stay in the deployment platform's secret store. Parsing uses
// caarlos0/env field tags; each config type is parsed once per process and
// cached, so repeated Load calls are cheap and every component sees one
// consistent view.
//
// # Usage
//
//	type ServerConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
package config
