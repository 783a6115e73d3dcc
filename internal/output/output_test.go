package output

import (
	"errors"
	"testing"
)

func TestResolveDeviceIndexPassesThroughConfigured(t *testing.T) {
	idx, err := resolveDeviceIndex(3, func() (int, error) {
		t.Fatal("default device queried for an explicit index")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("resolveDeviceIndex failed: %v", err)
	}
	if idx != 3 {
		t.Errorf("index: got %d, want 3", idx)
	}
}

// The shipped config default is -1, which must resolve to the system
// default device instead of reaching PortAudio as an invalid index.
func TestResolveDeviceIndexNegativeUsesDefault(t *testing.T) {
	idx, err := resolveDeviceIndex(-1, func() (int, error) { return 5, nil })
	if err != nil {
		t.Fatalf("resolveDeviceIndex failed: %v", err)
	}
	if idx != 5 {
		t.Errorf("index: got %d, want 5", idx)
	}
}

func TestResolveDeviceIndexDefaultLookupFailure(t *testing.T) {
	_, err := resolveDeviceIndex(-1, func() (int, error) {
		return 0, errors.New("no output devices")
	})
	if err == nil {
		t.Error("expected error when no default device exists")
	}
}
