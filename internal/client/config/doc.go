// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the gRPC endpoint
//	-i int      online status check interval (seconds)
//	-t int      per-request timeout (seconds)
//
// # JSON schema
//
// Durations are either strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "5s"
//	}
package config
