// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in ~/.harvester/config.toml:
//
//	[github]
//	token = "ghp_..."
//	per_page = 100
//	max_retries = 5
package file
