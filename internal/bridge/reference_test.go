package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/tadolink/tadolink/internal/infrastructure/mqtt"
)

func TestReferenceCache_BareNumber(t *testing.T) {
	rc := NewReferenceCache(0, nil)

	if err := rc.handleReading("tadolink/reference/hall", []byte("21.3")); err != nil {
		t.Fatalf("handleReading error = %v", err)
	}

	temp, ok := rc.ReferenceTemperature(context.Background(), "hall")
	if !ok {
		t.Fatal("ReferenceTemperature ok = false, want true")
	}
	if temp != 21.3 {
		t.Errorf("temp = %v, want 21.3", temp)
	}
}

func TestReferenceCache_JSONPayload(t *testing.T) {
	rc := NewReferenceCache(0, nil)

	payload := []byte(`{"temperature": 19.85, "humidity": 52}`)
	if err := rc.handleReading("tadolink/reference/bedroom", payload); err != nil {
		t.Fatalf("handleReading error = %v", err)
	}

	temp, ok := rc.ReferenceTemperature(context.Background(), "bedroom")
	if !ok || temp != 19.85 {
		t.Errorf("reading = (%v, %v), want (19.85, true)", temp, ok)
	}
}

func TestReferenceCache_BadPayloadIgnored(t *testing.T) {
	rc := NewReferenceCache(0, nil)

	for _, payload := range []string{"", "warm", `{"humidity": 52}`} {
		if err := rc.handleReading("tadolink/reference/hall", []byte(payload)); err != nil {
			t.Errorf("handleReading(%q) error = %v", payload, err)
		}
	}

	if _, ok := rc.ReferenceTemperature(context.Background(), "hall"); ok {
		t.Error("bad payloads should not produce a reading")
	}
}

func TestReferenceCache_UnknownSensor(t *testing.T) {
	rc := NewReferenceCache(0, nil)

	if _, ok := rc.ReferenceTemperature(context.Background(), "nope"); ok {
		t.Error("unknown sensor should report ok = false")
	}
}

func TestReferenceCache_StaleReadingExpires(t *testing.T) {
	rc := NewReferenceCache(10*time.Minute, nil)

	base := time.Now()
	rc.now = func() time.Time { return base }
	if err := rc.handleReading("tadolink/reference/hall", []byte("20.0")); err != nil {
		t.Fatalf("handleReading error = %v", err)
	}

	rc.now = func() time.Time { return base.Add(5 * time.Minute) }
	if _, ok := rc.ReferenceTemperature(context.Background(), "hall"); !ok {
		t.Error("fresh reading should be usable")
	}

	rc.now = func() time.Time { return base.Add(11 * time.Minute) }
	if _, ok := rc.ReferenceTemperature(context.Background(), "hall"); ok {
		t.Error("stale reading should report ok = false")
	}
}

func TestReferenceCache_Subscribe(t *testing.T) {
	rc := NewReferenceCache(0, nil)
	client := newFakeMQTT()

	if err := rc.Subscribe(client); err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}

	handler, ok := client.handlers[mqtt.Topics{}.AllReferences()]
	if !ok {
		t.Fatal("cache did not subscribe to reference topics")
	}

	if err := handler("tadolink/reference/hall", []byte("22.0")); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if temp, ok := rc.ReferenceTemperature(context.Background(), "hall"); !ok || temp != 22.0 {
		t.Errorf("reading = (%v, %v), want (22, true)", temp, ok)
	}
}
