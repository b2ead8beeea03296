// Package mqtt connects propertyd to an MQTT broker.
//
// The broker carries two flows:
//
//	propertyd ──core events──▶ <prefix>/events/<Event>/<object>/<path>
//	propertyd ◀──remote sets── <prefix>/set/<object>/<path>
//
// plus a retained <prefix>/status/<client> message that a Last Will turns
// into "offline" if the daemon dies. The client reconnects automatically
// and restores its subscriptions.
package mqtt
