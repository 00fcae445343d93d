package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Activity Tracker Service

Usage:
  tracker [flags]

Flags:
  -config-path string   Path to the config yaml file (default "config.yaml")
  -help                 Show this help message

Configuration is read from the YAML file and the environment; environment
variables win. See config/config.go for the full list of variables.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective, non-secret configuration on startup.
func PrintConfig(cfg *Config) {
	fmt.Printf("server:    %s\n", cfg.Server.Addr())
	fmt.Printf("database:  %s:%s/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Printf("rabbitmq:  enabled=%t %s:%s\n", cfg.RabbitMQ.Enabled, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Printf("log level: %s\n", cfg.Logging.Level)
}
