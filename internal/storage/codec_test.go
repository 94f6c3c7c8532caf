package storage

import (
	"errors"
	"testing"
	"time"

	"bfevolve/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	run := sampleRun("r1", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != run.ID || decoded.Config != run.Config || !decoded.CreatedAtUTC.Equal(run.CreatedAtUTC) {
		t.Fatalf("unexpected decoded run: %+v", decoded)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("r1", time.Now())
	run.VersionedRecord = model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion}
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	if _, err := DecodeRun([]byte("{")); err == nil {
		t.Fatal("expected run decode error")
	}
	if _, err := DecodeFitnessHistory([]byte("[1,")); err == nil {
		t.Fatal("expected history decode error")
	}
	if _, err := DecodeTopPrograms([]byte("nope")); err == nil {
		t.Fatal("expected top programs decode error")
	}
}
