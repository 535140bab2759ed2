// Package connectors holds the search sources a harvest can run against.
// Each subpackage implements driving.SourceHarvester for one API and is
// registered with the aggregator at startup.
package connectors
