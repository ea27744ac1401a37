// Package constants holds provider identifiers selected by configuration.
package constants

const (
	// PubSubProviderLocal posts events to a local HTTP endpoint.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle publishes to Google Cloud Pub/Sub.
	PubSubProviderGoogle = "google"
	// PubSubProviderGoCloud publishes through a gocloud.dev topic URL.
	PubSubProviderGoCloud = "gocloud"
)
