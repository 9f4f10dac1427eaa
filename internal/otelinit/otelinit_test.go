package otelinit

import (
	"context"
	"testing"
)

func TestNewWithNoExporterSucceeds(t *testing.T) {
	tel, err := New(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tel.FilterEvaluated == nil {
		t.Fatal("expected instruments to be registered")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewWithStdoutExporterSucceeds(t *testing.T) {
	tel, err := New(context.Background(), Config{ServiceName: "test", Exporter: ExporterStdout})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNoopNeverPanics(t *testing.T) {
	tel := Noop()
	if tel == nil {
		t.Fatal("expected non-nil telemetry bundle")
	}
}

func TestRegisterSubscriberGauge(t *testing.T) {
	tel, err := New(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tel.RegisterSubscriberGauge(func() int64 { return 3 }); err != nil {
		t.Fatalf("RegisterSubscriberGauge: %v", err)
	}
}
