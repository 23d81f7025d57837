package app

import (
	"fmt"

	"ldrmorse/pkg/archive"
	"ldrmorse/pkg/mqtt"
	"ldrmorse/pkg/session"

	"github.com/womat/debug"
)

// newMessage converts a session result to the archived and published message.
func newMessage(r session.Result) archive.Message {
	m := archive.Message{
		Text:        r.Text,
		Symbols:     r.Symbols,
		Samples:     r.Samples,
		Threshold:   r.Level.Threshold,
		Unmatched:   len(r.Unmatched),
		Fingerprint: fmt.Sprintf("%016x", r.Fingerprint),
		Started:     r.Started,
		Ended:       r.Ended,
	}
	if r.Units.Dot > 0 {
		m.Units = r.Units.String()
	}
	if r.Err != nil {
		m.Error = r.Err.Error()
	}
	return m
}

// handleResult archives the result and sends it to the mqtt broker.
func (app *App) handleResult(r session.Result) {
	m := newMessage(r)

	if app.archive != nil {
		id, err := app.archive.Add(m)
		if err != nil {
			debug.ErrorLog.Printf("archive message: %v", err)
		} else {
			m.ID = id
			debug.DebugLog.Printf("message %d archived", id)
		}
	}

	app.sendMQTT(app.config.MQTT.Topic, m)
}

// sendMQTT send message struct to the mqtt broker. The message is dropped if the app is closed before it's queued.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		select {
		case app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}:
		case <-app.quit:
			debug.DebugLog.Printf("app closed, mqtt message to %v dropped", t)
		}
	}(topic, message)
}
