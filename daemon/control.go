package daemon

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"

	"github.com/tv42/zbase32"

	"github.com/lightningnetwork/lnlite/routing"
)

// controlServer is the daemon's administrative surface: a small JSON/HTTP
// API gated by the admin macaroon, standing in for the gRPC control plane
// the channel protocol and routing engine do not otherwise need. It exposes
// exactly the operations lncli's trimmed command set drives.
type controlServer struct {
	srv  *Server
	http *http.Server
}

func newControlServer(srv *Server) *controlServer {
	c := &controlServer{srv: srv}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/addroute", c.authenticated(c.handleAddRoute))
	mux.HandleFunc("/v1/channels", c.authenticated(c.handleGetChannels))
	mux.HandleFunc("/v1/nodes", c.authenticated(c.handleGetNodes))
	mux.HandleFunc("/v1/routefail", c.authenticated(c.handleDevRouteFail))

	c.http = &http.Server{Handler: mux}
	return c
}

func (c *controlServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go c.http.Serve(ln)
	return nil
}

func (c *controlServer) Stop() {
	c.http.Shutdown(context.Background())
}

// authenticated wraps h with a macaroon check. Authentication can be
// disabled entirely via --no-macaroons for local development, matching the
// escape hatch the config layer already exposes.
func (c *controlServer) authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.srv.macSvc == nil {
			h(w, r)
			return
		}

		macHex := r.Header.Get("Macaroon")
		macBytes, err := hex.DecodeString(macHex)
		if err != nil {
			http.Error(w, "missing or malformed macaroon", http.StatusUnauthorized)
			return
		}
		if err := c.srv.macSvc.Verify(macBytes); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		h(w, r)
	}
}

type addRouteRequest struct {
	Route string `json:"route"`
}

func (c *controlServer) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var req addRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	arg, err := routing.ParseAddRouteArg(req.Route)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = c.srv.engine.AddRoute(r.Context(), arg.Src, arg.Dst, arg.BaseFee,
		arg.ProportionalFee, arg.Delay, arg.MinBlocks)
	if err != nil {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// channelView and nodeView are the control surface's JSON projections of
// the graph types: node identities render as zbase32, the same
// human-readable encoding the teacher uses for its signed-message output,
// rather than a raw byte array.
type channelView struct {
	From, To        string
	BaseFee         uint32
	ProportionalFee int32
}

type nodeView struct {
	ID       string
	Hostname string
	Port     int
}

func (c *controlServer) handleGetChannels(w http.ResponseWriter, r *http.Request) {
	chans := c.srv.engine.Graph.Channels()
	views := make([]channelView, len(chans))
	for i, ch := range chans {
		views[i] = channelView{
			From:            zbase32.EncodeToString(ch.From[:]),
			To:              zbase32.EncodeToString(ch.To[:]),
			BaseFee:         ch.BaseFee,
			ProportionalFee: ch.ProportionalFee,
		}
	}
	writeJSON(w, views)
}

func (c *controlServer) handleGetNodes(w http.ResponseWriter, r *http.Request) {
	nodes := c.srv.engine.Graph.Nodes()
	views := make([]nodeView, len(nodes))
	for i, n := range nodes {
		views[i] = nodeView{
			ID:       zbase32.EncodeToString(n.ID[:]),
			Hostname: n.Hostname,
			Port:     n.Port,
		}
	}
	writeJSON(w, views)
}

type devRouteFailRequest struct {
	Never bool `json:"never"`
}

func (c *controlServer) handleDevRouteFail(w http.ResponseWriter, r *http.Request) {
	var req devRouteFailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.srv.engine.SetDevNeverRouteFail(req.Never)
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
