//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/tadolink/tadolink/internal/infrastructure/config"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// TestIntegration_SubscriptionTracking verifies the bookkeeping used
// to restore subscriptions after a reconnect. It does not force a
// disconnect, which would need broker control.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("tadolink-int-sub-track"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	topics := []string{
		Topics{}.AllCommands(),
		Topics{}.AllReferences(),
		Topics{}.Reference("attic"),
	}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
		if !client.HasSubscription(topic) {
			t.Errorf("HasSubscription(%s) = false after Subscribe", topic)
		}
	}
	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after Unsubscribe", topics[0])
	}
	if got := client.SubscriptionCount(); got != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", got, len(topics)-1)
	}
}

// TestIntegration_ReferenceRoundtrip publishes a reference sensor
// reading the way an external sensor would and checks it arrives on
// the wildcard subscription the offset-sync path uses.
func TestIntegration_ReferenceRoundtrip(t *testing.T) {
	pub, err := Connect(integrationConfig("tadolink-int-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close() //nolint:errcheck // Test cleanup

	sub, err := Connect(integrationConfig("tadolink-int-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close() //nolint:errcheck // Test cleanup

	type reading struct {
		topic   string
		payload string
	}
	received := make(chan reading, 1)
	var once sync.Once

	err = sub.Subscribe(Topics{}.AllReferences(), 1, func(topic string, payload []byte) error {
		once.Do(func() {
			received <- reading{topic, string(payload)}
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Give the broker a moment to register the subscription.
	time.Sleep(100 * time.Millisecond)

	sensorTopic := Topics{}.Reference("hallway")
	if err := pub.PublishString(sensorTopic, "21.5", 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case got := <-received:
		if got.topic != sensorTopic {
			t.Errorf("topic = %q, want %q", got.topic, sensorTopic)
		}
		if got.payload != "21.5" {
			t.Errorf("payload = %q, want %q", got.payload, "21.5")
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for reference reading")
	}
}

// TestIntegration_CallbacksAndLogger verifies the setters are safe to
// call on a live connection, including resetting to nil.
func TestIntegration_CallbacksAndLogger(t *testing.T) {
	client, err := Connect(integrationConfig("tadolink-int-callbacks"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	client.SetOnConnect(func() {})
	client.SetOnDisconnect(func(error) {})
	client.SetOnConnect(nil)
	client.SetOnDisconnect(nil)

	client.SetLogger(&recordingLogger{})
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}
	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() != nil after SetLogger(nil)")
	}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
}
