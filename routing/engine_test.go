package routing

import (
	"context"
	"testing"
)

func TestEngineDevRouteFailToggle(t *testing.T) {
	e := NewDefaultEngine()

	if e.DevNeverRouteFail() {
		t.Fatal("dev-routefail should default to disabled")
	}

	e.SetDevNeverRouteFail(true)
	if !e.DevNeverRouteFail() {
		t.Fatal("SetDevNeverRouteFail(true) did not take effect")
	}
}

func TestEngineFindRouteForcedFailure(t *testing.T) {
	e := NewDefaultEngine()
	a, b := pk(1), pk(2)

	if err := e.AddRoute(context.Background(), a, b, 0, 0, 10, 1); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}

	if _, err := e.FindRoute(a, b, 1000); err != nil {
		t.Fatalf("FindRoute should succeed before dev-routefail is set: %v", err)
	}

	e.SetDevNeverRouteFail(true)
	if _, err := e.FindRoute(a, b, 1000); err == nil {
		t.Fatal("FindRoute should fail once dev-routefail is set, even with a usable route present")
	}
}

func TestEngineAddRouteWiresGraph(t *testing.T) {
	e := NewDefaultEngine()
	a, b := pk(1), pk(2)

	if err := e.AddRoute(context.Background(), a, b, 100, 100, 10, 1); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}

	channels := e.Graph.Channels()
	if len(channels) != 1 {
		t.Fatalf("got %d channels, want 1", len(channels))
	}
}
