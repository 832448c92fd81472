// Package config handles configuration loading for a kevaboard host.
//
// # Overview
//
// Each served host has its own YAML file, hosts/<host>/config.yaml, unless
// KEVABOARD_CONFIG names another path. The server and the reconciliation
// worker read the same file.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	kevacoin:
//	  password: "${KEVACOIN_RPC_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	cache:
//	  default_ttl: "8760h"
//	  room_ttl: "10m"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  host: "kevachat.example"   # used in generated links
//	  port: 1965                 # omitted from links when 1965
//	  addr: ":1965"              # listen address
//	  cert_file: "hosts/kevachat.example/cert.pem"
//	  key_file: "hosts/kevachat.example/key.pem"
//
// Daemon:
//
//	kevacoin:
//	  url: "http://127.0.0.1:9992"
//	  username: "kevacoin"
//	  password: "${KEVACOIN_RPC_PASSWORD}"
//	  timeout: "30s"
//
// Board rules (regular expressions, defaults shown in package codec):
//
//	board:
//	  about:
//	    - "Pay-to-post rooms on the Kevacoin ledger."
//	  room_regex: "^[\\w\\s]{1,64}$"
//	  key_regex: "^([\\d]+)@([^@\\s]+)$"
//	  value_regex: "^(?s).{1,3072}$"
//	  user_regex: "^[A-Za-z0-9._-]{1,64}$"
//
// Payment pool:
//
//	database:
//	  path: "hosts/kevachat.example/pool.db"
//	pool:
//	  cost: "0.5"          # coins per post; 0 publishes directly
//	  min_balance: "1"     # wallet floor for free posts
//	  account: "board"
//	  confirmations: 1
//	  timeout: "1h"
//	  lock_dir: "/run/kevaboard"
//
// Throttling, locale and logging:
//
//	limits:
//	  submissions_per_minute: 10
//	  burst: 3
//	locale:
//	  path: "hosts/kevachat.example/locale.toml"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
