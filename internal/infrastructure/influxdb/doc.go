// Package influxdb records homebus telemetry in InfluxDB v2.
//
// Points are batched by influxdb-client-go and flushed in the background;
// the coordinator never waits on a write.
//
// # Measurements
//
//	sensor_reading  tags: home, device, room, kind   fields: value
//	consumption     tags: home                       fields: watts, devices_on
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Home.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("thermo-1", "Bedroom", "Thermometer", 22.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes after Close are dropped.
package influxdb
