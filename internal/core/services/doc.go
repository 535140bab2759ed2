// Package services implements the driving port interfaces.
//
// Aggregator runs every configured source for a keyword concurrently,
// merges their results and keeps a history through driven.HarvestStore.
package services
