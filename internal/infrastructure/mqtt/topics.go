package mqtt

import "strings"

// Topics builds the daemon's topic names under a prefix.
//
//	t := mqtt.Topics{Prefix: "propertyd"}
//	t.Set("dev", "channel.gain") // "propertyd/set/dev/channel/gain"
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	return strings.TrimSuffix(t.Prefix, "/") + "/" + strings.Join(parts, "/")
}

// Events is the root of core-event topics, used as the MQTT sink prefix.
func (t Topics) Events() string { return t.join("events") }

// AllEvents matches every core-event topic.
func (t Topics) AllEvents() string { return t.join("events", "#") }

// Set is the topic a remote writer publishes a new value for path to.
// Dots in path become topic levels.
func (t Topics) Set(object, path string) string {
	return t.join("set", object, strings.ReplaceAll(path, ".", "/"))
}

// AllSets matches every remote write topic.
func (t Topics) AllSets() string { return t.join("set", "#") }

// Status is the retained online/offline topic for clientID.
func (t Topics) Status(clientID string) string { return t.join("status", clientID) }

// ParseSet splits a remote write topic into the object and the dotted
// property path. ok is false for other topics.
func (t Topics) ParseSet(topic string) (object, path string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.join("set")+"/")
	if !found {
		return "", "", false
	}
	object, levels, found := strings.Cut(rest, "/")
	if !found || object == "" || levels == "" {
		return "", "", false
	}
	return object, strings.ReplaceAll(levels, "/", "."), true
}
