package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSensor      = "sensor_reading"
	MeasurementConsumption = "consumption"
)

// WriteSensorReading queues one sensor update. Motion readings arrive as
// 1 (detected) or 0.
//
// Example:
//
//	client.WriteSensorReading("thermo-bedroom", "Bedroom", "Thermometer", 21.5)
func (c *Client) WriteSensorReading(name, room, kind string, value float64) {
	if !c.IsOpen() {
		return
	}
	c.writer.WritePoint(sensorPoint(name, room, kind, value, time.Now()))
}

// WriteConsumption records the house's active consumption.
//
// Parameters:
//   - watts: Summed consumption of the devices that are on
//   - devicesOn: How many devices are on
func (c *Client) WriteConsumption(watts float64, devicesOn int) {
	if !c.IsOpen() {
		return
	}
	c.writer.WritePoint(consumptionPoint(watts, devicesOn, time.Now()))
}

func sensorPoint(name, room, kind string, value float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSensor,
		map[string]string{
			"device": name,
			"room":   room,
			"kind":   kind,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)
}

func consumptionPoint(watts float64, devicesOn int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementConsumption,
		nil,
		map[string]interface{}{
			"watts":      watts,
			"devices_on": devicesOn,
		},
		at,
	)
}
