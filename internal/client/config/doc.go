// Package config loads runtime configuration for the member CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-i int      session check interval (seconds)
//	-d string   path to the local client database
//	-r string   redis address for the session scope
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000",
//	  "session_check_interval": "30s",
//	  "database_path": "membercli.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "remember_me_for": "720h"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
