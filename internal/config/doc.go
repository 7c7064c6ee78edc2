// Package config loads sitesmith configuration.
//
// Settings are resolved in three steps, later steps overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, with @include support (see the loader package)
//  3. Environment variables prefixed with SITESMITH_
//
// The result is validated before use. A minimal file:
//
//	[server]
//	addr = ":8080"
//
//	[auth]
//	secret = "..."
//
//	[[billing.packs]]
//	id = "starter"
//	credits = 10
//	price_cents = 900
//	currency = "USD"
//	price_id = "price_123"
//
//	[[keymap.bindings]]
//	keys = "mod+k"
//	action = "help.toggle"
//
// # Sub-packages
//
//   - loader: TOML file loading with includes and deep merge
//   - watcher: file change notification for live reload
package config
