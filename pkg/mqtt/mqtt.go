// Package mqtt publishes messages to a mqtt broker.
package mqtt

import (
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

const (
	// quiesce is the specified number of milliseconds to wait for existing work to be completed.
	quiesce = 250
	// connectTimeout limits the wait for the broker.
	connectTimeout = 5 * time.Second
	// queue is the count of messages buffered while a message is published.
	queue = 8
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler  mqttlib.Client
	clientID string
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message
	// done stops Service, it's closed by Disconnect.
	done     chan struct{}
	doneOnce sync.Once
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generate a new mqtt broker client.
func New(clientID string) *Handler {
	return &Handler{
		clientID: clientID,
		C:        make(chan Message, queue),
		done:     make(chan struct{}),
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker string) error {
	if broker == "" {
		debug.InfoLog.Print("no mqtt broker defined, decoded messages aren't published")
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(broker).
		SetClientID(m.clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// Connected reports whether a broker is configured and connected.
func (m *Handler) Connected() bool {
	return m.handler != nil && m.handler.IsConnected()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker and stops Service.
func (m *Handler) Disconnect() error {
	m.doneOnce.Do(func() { close(m.done) })

	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
// Service returns after Disconnect, messages still queued in C are dropped.
func (m *Handler) Service() {
	for {
		var d Message
		select {
		case <-m.done:
			return
		case d = <-m.C:
		}

		if m.handler == nil || d.Topic == "" {
			debug.TraceLog.Printf("mqtt message to topic %q ignored", d.Topic)
			continue
		}

		if !m.handler.IsConnected() {
			debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

			if err := m.ReConnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(d.Payload), d.Topic)
		t := m.handler.Publish(d.Topic, d.Qos, d.Retained, d.Payload)

		// the asynchronous nature of this library makes it easy to forget to check for errors.
		go func(topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(d.Topic)
	}
}
