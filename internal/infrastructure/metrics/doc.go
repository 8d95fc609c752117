// Package metrics exposes homebus counters and gauges in the Prometheus
// exposition format.
//
// A Metrics value owns its own registry so several instances (and tests)
// never collide on the global default registry. Handler serves /metrics.
//
// Exported series:
//
//	homebus_protocol_errors_total{kind}       inbound messages dropped
//	homebus_commands_sent_total{origin}       commands published (request/profile)
//	homebus_commands_acknowledged_total       requests resolved by a device
//	homebus_command_ack_seconds               send → acknowledgement latency
//	homebus_requests_expired_total            requests failed by the TTL sweeper
//	homebus_requests_pending                  correlation table size
//	homebus_sensor_readings_total{kind}       sensor updates received
//	homebus_devices_registered                registry size
//	homebus_devices_on                        devices reported on
//	homebus_active_consumption_watts          sum of consumption of devices on
//	homebus_http_request_seconds{route,code}  API latency
package metrics
