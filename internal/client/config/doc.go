// Package config loads runtime configuration for the Dispersed client.
//
// # Sources and precedence
//
//  1. Built-in defaults (see Defaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed DISPERSED_ (DISPERSED_API_BASE_URL,
//     DISPERSED_LOG_LEVEL, ...). They override the file.
//  4. Command-line flags, which override everything above.
//
// Steps 2 and 3 are read through viper.
//
// # Supported flags
//
//	-a string   base URL of the Dispersed API
//	-s string   path of the local session database (:memory: keeps nothing)
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations accept Go duration strings or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://dispersed.example.com",
//	  "session_db": "/home/me/.dispersed/session.db",
//	  "connect_timeout": "5s",
//	  "log_format": "console",
//	  "log_level": "debug"
//	}
package config
