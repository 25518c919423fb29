package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "localhost:1883", want: "tcp://localhost:1883"},
		{in: "tcp://broker:1883", want: "tcp://broker:1883"},
		{in: "ssl://broker:8883", want: "ssl://broker:8883"},
	}
	for _, tt := range tests {
		if got := BrokerURL(tt.in); got != tt.want {
			t.Errorf("BrokerURL(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestPublisher_publishWhileDisconnected(t *testing.T) {
	p := NewPublisher(Options{Broker: "127.0.0.1:1", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if p.IsConnected() {
		t.Fatal("new publisher reports connected")
	}
	if err := p.Publish("weather/x", []byte("{}")); err == nil {
		t.Fatal("Publish() = nil; want error while disconnected")
	}
}

func TestPublisher_connectAfterDisconnect(t *testing.T) {
	p := NewPublisher(Options{Broker: "127.0.0.1:1", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	p.Disconnect()
	p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Connect(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() after Disconnect = %v; want ErrStopped", err)
	}
}
