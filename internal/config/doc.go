// Package config loads easel's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. Read ./.env if present, so EASEL_API_KEY can be kept out of the file
//  2. If a path is explicitly provided, use it
//  3. Otherwise, use ~/.config/easel/config.toml (default)
//  4. If the config file doesn't exist, fall back to defaults
//  5. If the file exists but fields are missing or blank, use defaults
//  6. EASEL_API_KEY, when set, replaces api_key
//
// The resolved Config is validated before it is returned.
//
// # TOML Format
//
//	generation_url = "https://api.userapi.ai/midjourney/v2"
//	collection_url = "http://127.0.0.1:8000/api"
//	api_key = ""
//	api_key_header = "api-key"
//	account_hash = ""
//	poll_interval = "2s"
//	poll_timeout = "10s"
//	mutation_timeout = "2m"
//	max_attempts = 3
//	keep_warm_interval = "25s"
//	log_path = "~/.local/state/easel/easel.log"
//	log_level = "info"
//
// Durations use Go duration syntax. Paths starting with ~ are expanded to the
// user's home directory.
package config
