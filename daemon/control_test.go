package daemon

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/lightningnetwork/lnlite/routing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	srv := &Server{
		cfg:    &Config{NoMacaroons: true},
		engine: routing.NewDefaultEngine(),
		peers:  make(map[string]*peer),
		quit:   make(chan struct{}),
	}
	srv.control = newControlServer(srv)
	return srv
}

func TestControlServerAddRouteThenListChannels(t *testing.T) {
	srv := newTestServer(t)

	route := hex.EncodeToString(bytes.Repeat([]byte{0x02}, 33)) + "/" +
		hex.EncodeToString(bytes.Repeat([]byte{0x03}, 33)) + "/10/100/6/1"
	body, _ := json.Marshal(addRouteRequest{Route: route})
	req := httptest.NewRequest("POST", "/v1/addroute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.control.handleAddRoute(w, req)

	if w.Code != 200 {
		t.Fatalf("handleAddRoute status = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/v1/channels", nil)
	w = httptest.NewRecorder()
	srv.control.handleGetChannels(w, req)

	var views []channelView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("decoding channels response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d channels, want 1", len(views))
	}
	if views[0].BaseFee != 10 {
		t.Fatalf("BaseFee = %d, want 10", views[0].BaseFee)
	}
}

func TestControlServerAddRouteRejectsMalformedLiteral(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(addRouteRequest{Route: "not-a-valid-literal"})
	req := httptest.NewRequest("POST", "/v1/addroute", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.control.handleAddRoute(w, req)

	if w.Code == 200 {
		t.Fatal("handleAddRoute accepted a malformed route literal")
	}
}

func TestControlServerDevRouteFailTogglesEngine(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(devRouteFailRequest{Never: true})
	req := httptest.NewRequest("POST", "/v1/routefail", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.control.handleDevRouteFail(w, req)

	if w.Code != 200 {
		t.Fatalf("handleDevRouteFail status = %d", w.Code)
	}
	if !srv.engine.DevNeverRouteFail() {
		t.Fatal("handleDevRouteFail did not toggle the engine's dev-routefail flag")
	}
}

func TestControlServerAuthenticatedRejectsMissingMacaroon(t *testing.T) {
	srv := newTestServer(t)

	macSvc := newTestMacaroonService(t)
	srv.macSvc = macSvc
	srv.control = newControlServer(srv)

	req := httptest.NewRequest("GET", "/v1/nodes", nil)
	w := httptest.NewRecorder()
	srv.control.authenticated(srv.control.handleGetNodes)(w, req)

	if w.Code != 401 {
		t.Fatalf("status = %d, want 401 without a macaroon", w.Code)
	}
}

func TestControlServerAuthenticatedAcceptsValidMacaroon(t *testing.T) {
	srv := newTestServer(t)

	macSvc := newTestMacaroonService(t)
	srv.macSvc = macSvc
	srv.control = newControlServer(srv)

	mac, err := macSvc.NewAdminMacaroon()
	if err != nil {
		t.Fatalf("NewAdminMacaroon: %v", err)
	}
	macBytes, err := mac.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/nodes", nil)
	req.Header.Set("Macaroon", hex.EncodeToString(macBytes))
	w := httptest.NewRecorder()
	srv.control.authenticated(srv.control.handleGetNodes)(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
