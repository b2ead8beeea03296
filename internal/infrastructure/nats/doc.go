// Package nats publishes core events to a NATS server.
//
// The client wraps nats.go with reconnect handling and a connection status
// that the health endpoint reports. Publish matches coreevent.NATSPublisher,
// so the client backs the NATS sink directly:
//
//	client, err := nats.Connect(ctx, cfg.NATS)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	relay.AddSink(coreevent.NewNATSSink(client, cfg.NATS.SubjectPrefix))
package nats
