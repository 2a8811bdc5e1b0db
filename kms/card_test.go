package kms

import (
	"testing"

	"github.com/NeowayLabs/drmkms"
)

func TestNewCrtcs(t *testing.T) {
	crtcs := newCrtcs([]uint32{40, 41, 45})
	if len(crtcs) != 3 {
		t.Fatalf("got %d crtcs, want 3", len(crtcs))
	}
	for i, c := range crtcs {
		if c.Index != i {
			t.Errorf("crtc %d: index %d, want %d", c.ID, c.Index, i)
		}
		if c.PrimaryPlaneID != 0 {
			t.Errorf("crtc %d: primary plane %d, want 0", c.ID, c.PrimaryPlaneID)
		}
	}
	if crtcs[2].ID != 45 {
		t.Errorf("last crtc id %d, want 45", crtcs[2].ID)
	}
}

func TestCardCrtcs(t *testing.T) {
	card, err := Open(0)
	if err != nil {
		t.Skipf("no card: %v", err)
	}
	defer card.Close()

	res, err := card.Resources()
	if err != nil {
		t.Skipf("not a KMS device: %v", err)
	}
	crtcs, err := card.Crtcs()
	if err != nil {
		t.Fatal(err)
	}
	if len(crtcs) != len(res.Crtcs) {
		t.Fatalf("got %d crtcs, want %d", len(crtcs), len(res.Crtcs))
	}
	for i, c := range crtcs {
		if c.ID != res.Crtcs[i] {
			t.Errorf("crtc %d: id %d, want %d", i, c.ID, res.Crtcs[i])
		}
	}
}

func TestNewCard(t *testing.T) {
	f, err := drm.OpenCard(0)
	if err != nil {
		t.Skipf("no card: %v", err)
	}
	card := NewCard(f)
	if card.File() != f {
		t.Error("File() does not return the wrapped file")
	}
	if _, err := card.Version(); err != nil {
		t.Errorf("Version: %v", err)
	}
	if err := card.Close(); err != nil {
		t.Error(err)
	}
}
