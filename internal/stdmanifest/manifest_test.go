package stdmanifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadBundledManifest(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("bundled manifest must parse: %v", err)
	}
	if m.Root != "root" {
		t.Fatalf("root module = %q", m.Root)
	}
}

func TestOrderPutsRootFirst(t *testing.T) {
	m := &Manifest{Root: "root", Modules: []string{"app", "root", "net"}}
	got := m.Order()
	want := []string{"root", "app", "net"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}
