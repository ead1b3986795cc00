// Package integration contains the Integration bounded context.
// This context manages a tenant's connections to external advertising and
// marketing platforms: OAuth credential lifecycles, scheduled metric syncs,
// inbound webhooks and derived health notifications.
//
// Key concepts:
//   - Integration: Entity representing one tenant↔provider connection
//   - ProviderAdapter: Port interface for talking to a concrete provider
//   - SyncJob / SyncHistory: One attempt to pull fresh data, and its immutable audit trail
//   - WebhookEvent: Immutable record of an inbound provider callback
//   - Notification: Derived integration-health signal
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (Google Ads, Meta Ads, Zalo OA, TikTok Ads, Shopee) are in the
//     infrastructure layer
package integration
