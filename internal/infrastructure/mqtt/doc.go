// Package mqtt provides MQTT client connectivity for homebus.
//
// This package manages:
//   - Connection to the broker with backoff-driven initial connect
//   - Auto-reconnect with subscription restore
//   - Message publishing with QoS guarantees and retained state
//   - Last Will and Testament for offline detection
//   - The homebus topic scheme (Topics)
//
// # Architecture
//
// The broker decouples the coordinator from the devices it manages:
//
//	homebus coordinator ↔ MQTT Broker ↔ devices (homesim or real firmware)
//
// Each device owns two topics derived from its type and name. The
// coordinator subscribes to a device's publish topic after registration
// and sends commands on its subscribe topic.
//
//	homebus/registration                  register_<name>, disconnected_<name>
//	homebus/broadcast                     coordinator last will
//	homebus/<Type>/<name>/subscribe       coordinator → device
//	homebus/<Type>/<name>/publish         device → coordinator
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Will{
//	    Topic:    topics.Broadcast(),
//	    Payload:  notice,
//	    QoS:      1,
//	    Retained: true,
//	})
//	if err != nil {
//	    return err // wraps ErrConnectionFailed
//	}
//	defer client.Close()
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package mqtt
