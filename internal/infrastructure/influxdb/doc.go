// Package influxdb records property value history in InfluxDB.
//
// It wraps influxdb-client-go v2. Writes go through the non-blocking,
// batched write API; the core-event history sink calls WritePoint for every
// numeric or boolean change. History reads the recorded values back for one
// property path with a Flux query.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	relay.AddSink(coreevent.NewHistorySink(client))
//
// Batch size and flush interval come from the influxdb config section.
package influxdb
