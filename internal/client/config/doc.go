// Package config loads runtime configuration for the LearnKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the learning server
//	-d string   path to the local database file
//	-s int      sync interval (seconds)
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// Interval fields accept either a duration string ("5m", "30s") or integer
// nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://sync.example:8080",
//	  "database_dsn": "/var/lib/learnkeeper/client.db",
//	  "sync_interval": "5m",
//	  "online_check_interval": "3s",
//	  "request_timeout": "30s",
//	  "max_queue_retries": 3
//	}
package config
