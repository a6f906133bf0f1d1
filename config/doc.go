// Package config loads the anyfile TOML configuration.
//
// Every key is optional; absent keys keep their defaults and a missing file
// means all defaults:
//
//	log_level          = "warn"            # debug, info, warn, error
//	strict             = false             # reject trailing bytes
//	memory_limit_pages = 100               # engine memory cap, 64KiB pages
//	server_address     = "127.0.0.1:8080"
//	max_body_bytes     = 67108864
//	info_format        = "text"            # text, json, yaml
//
// Command-line flags override file values when given.
package config
