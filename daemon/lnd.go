package daemon

import (
	"fmt"
	"net"
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/sync/errgroup"

	"github.com/lightningnetwork/lnlite/lncfg"
	"github.com/lightningnetwork/lnlite/routing"
)

// Server owns the daemon's listening socket, its live peer connections, the
// routing engine they all share, and the macaroon-gated control surface
// sitting in front of it.
type Server struct {
	cfg *Config

	engine *routing.Engine
	macSvc *MacaroonService

	listener net.Listener
	control  *controlServer

	peersMu sync.Mutex
	peers   map[string]*peer

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewServer wires up a Server from cfg: the routing engine, the macaroon
// root key store (unless disabled), and the peer and control listeners.
// Nothing is accepting connections yet; call Start for that.
func NewServer(cfg *Config) (*Server, error) {
	engine := routing.NewDefaultEngine()
	engine.Riskfactor = cfg.Riskfactor
	engine.MaxHops = cfg.RoutingMaxHops

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		peers:  make(map[string]*peer),
		quit:   make(chan struct{}),
	}

	if !cfg.NoMacaroons {
		macSvc, err := NewMacaroonService(cfg.macaroonDBPath())
		if err != nil {
			return nil, fmt.Errorf("unable to open macaroon service: %v", err)
		}
		if err := macSvc.writeAdminMacaroon(cfg.AdminMacPath); err != nil {
			macSvc.Close()
			return nil, fmt.Errorf("unable to write admin macaroon: %v", err)
		}
		srv.macSvc = macSvc
	}

	for _, literal := range cfg.StaticRoutes {
		arg, err := routing.ParseAddRouteArg(literal)
		if err != nil {
			if srv.macSvc != nil {
				srv.macSvc.Close()
			}
			return nil, fmt.Errorf("bad --addroute %q: %v", literal, err)
		}
		srv.engine.Graph.AddConnection(arg.Src, arg.Dst, arg.BaseFee,
			arg.ProportionalFee, arg.Delay, arg.MinBlocks)
	}

	srv.control = newControlServer(srv)

	return srv, nil
}

// Start brings up the peer listener and the control surface concurrently,
// then returns once both are accepting connections, or the first error
// either one hit.
func (s *Server) Start() error {
	var eg errgroup.Group

	eg.Go(func() error {
		peerAddr, err := lncfg.ParseAddressString(s.cfg.ListenAddr, "9735", net.ResolveTCPAddr)
		if err != nil {
			return fmt.Errorf("unable to parse listen address: %v", err)
		}
		listener, err := lncfg.ListenOnAddress(peerAddr)
		if err != nil {
			return fmt.Errorf("unable to listen on %v: %v", peerAddr, err)
		}
		s.listener = listener

		lnddLog.Infof("listening for peer connections on %v", peerAddr)

		s.wg.Add(1)
		go s.acceptLoop()
		return nil
	})

	eg.Go(func() error {
		if err := s.control.Start(s.cfg.ControlAddr); err != nil {
			return fmt.Errorf("unable to start control surface: %v", err)
		}
		lnddLog.Infof("control surface listening on %v", s.cfg.ControlAddr)
		return nil
	})

	return eg.Wait()
}

// Stop closes the peer listener, the control surface, every live peer
// connection, and the macaroon store.
func (s *Server) Stop() error {
	close(s.quit)

	if s.listener != nil {
		s.listener.Close()
	}
	if s.control != nil {
		s.control.Stop()
	}

	s.peersMu.Lock()
	for _, p := range s.peers {
		p.stop()
	}
	s.peersMu.Unlock()

	s.wg.Wait()

	if s.macSvc != nil {
		return s.macSvc.Close()
	}
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				lnddLog.Errorf("accept failed: %v", err)
				return
			}
		}

		p := newPeer(s, conn, nil)
		s.addPeer(p)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			p.readLoop()
		}()
	}
}

// ConnectToPeer dials addr, registers the resulting connection, and
// proposes a fresh channel over it as the funding side.
func (s *Server) ConnectToPeer(addr string, remoteKey *btcec.PublicKey) (*peer, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %v: %v", addr, err)
	}

	p := newPeer(s, conn, remoteKey)
	s.addPeer(p)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.readLoop()
	}()

	if err := p.negotiateOpen(true); err != nil {
		p.stop()
		return nil, fmt.Errorf("unable to negotiate channel open with %v: %v", addr, err)
	}

	return p, nil
}

func (s *Server) addPeer(p *peer) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	s.peers[p.conn.RemoteAddr().String()] = p
}

func (s *Server) removePeer(p *peer) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	key := p.conn.RemoteAddr().String()
	if s.peers[key] == p {
		delete(s.peers, key)
	}
}

// LndMain is the daemon's entrypoint: it loads configuration, brings the
// server up, blocks until a shutdown is requested (by SIGINT or SIGTERM),
// and tears the server back down.
func LndMain(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	srv, err := NewServer(cfg)
	if err != nil {
		return err
	}

	listenForShutdown()

	if err := srv.Start(); err != nil {
		return err
	}

	lnddLog.Infof("lnlite fully started")

	<-ShutdownChannel()

	lnddLog.Infof("received shutdown request, stopping")

	return srv.Stop()
}
