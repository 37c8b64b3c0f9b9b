// ABOUTME: Control plane loop: associate, listen, accept one request per connection
// ABOUTME: Re-checks link liveness after every accept cycle and restarts association on loss
package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// requestBufSize is the single receive per connection
	requestBufSize = 1024

	// idlePause yields between server cycles
	idlePause = 50 * time.Millisecond

	heartbeatPulse = 50 * time.Millisecond
	failureBlink   = 500 * time.Millisecond
)

// Advertiser announces the control surface while the server runs
type Advertiser interface {
	Start(ip string, port int) error
	Stop()
}

// Config is everything the control plane needs besides its collaborators
type Config struct {
	ListenAddr    string
	AcceptTimeout time.Duration
	ClientTimeout time.Duration
	// HeartbeatLED is pulsed after every accept cycle, 0 disables it
	HeartbeatLED int
}

// ControlPlane runs on the network context. It owns the link, the
// listening socket and the four status LEDs.
type ControlPlane struct {
	cfg        Config
	link       Link
	assoc      *Associator
	leds       LEDBank
	dispatch   *Dispatcher
	advertiser Advertiser

	// OnStatus, if set, observes state and server changes
	OnStatus func(Status)

	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	status Status

	ln *net.TCPListener
}

// NewControlPlane wires the loop. advertiser may be nil.
func NewControlPlane(cfg Config, link Link, assoc *Associator, mb Mailbox, leds LEDBank, advertiser Advertiser) *ControlPlane {
	cp := &ControlPlane{
		cfg:        cfg,
		link:       link,
		assoc:      assoc,
		leds:       leds,
		advertiser: advertiser,
		sleep:      sleepCtx,
	}
	cp.dispatch = NewDispatcher(mb, leds, cp.Status)
	assoc.OnState = cp.setState
	return cp
}

// Status returns a snapshot for /status and the status screen
func (cp *ControlPlane) Status() Status {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.status
}

// Addr returns the bound listen address, "" while the server is down
func (cp *ControlPlane) Addr() string {
	return cp.Status().Addr
}

func (cp *ControlPlane) setState(s ConnectionState) {
	cp.update(func(st *Status) { st.State = s })
}

func (cp *ControlPlane) update(fn func(*Status)) {
	cp.mu.Lock()
	fn(&cp.status)
	st := cp.status
	cp.mu.Unlock()

	if cp.OnStatus != nil {
		cp.OnStatus(st)
	}
}

// Run loops until ctx is cancelled. It never gives up on the link.
func (cp *ControlPlane) Run(ctx context.Context) error {
	defer cp.stopServer()

	cp.setState(ConnectionState{Phase: Disconnected})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cp.Status().State.Phase != Connected {
			if _, err := cp.assoc.Associate(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("wifi connection failed", "error", err)
				if err := cp.leds.BlinkAll(ctx, 1, failureBlink, cp.sleep); err != nil {
					return err
				}
				continue
			}
		}

		if !cp.Status().ServerRunning {
			if err := cp.startServer(ctx); err != nil {
				slog.Error("failed to start server", "addr", cp.cfg.ListenAddr, "error", err)
			}
		}

		if cp.Status().ServerRunning {
			cp.acceptOnce(ctx)

			if err := cp.leds.Pulse(ctx, cp.cfg.HeartbeatLED, heartbeatPulse, cp.sleep); err != nil {
				return err
			}

			if !cp.link.IsConnected() {
				slog.Warn("wifi connection lost")
				cp.stopServer()
				cp.setState(ConnectionState{Phase: Disconnected})
			}
		}

		if err := cp.sleep(ctx, idlePause); err != nil {
			return err
		}
	}
}

func (cp *ControlPlane) startServer(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cp.cfg.ListenAddr)
	if err != nil {
		return err
	}
	cp.ln = ln.(*net.TCPListener)

	addr := cp.ln.Addr().String()
	cp.update(func(st *Status) {
		st.ServerRunning = true
		st.Addr = addr
	})
	slog.Info("server started", "addr", addr)

	if cp.advertiser != nil {
		ip := cp.Status().State.IP
		if err := cp.advertiser.Start(ip, cp.ln.Addr().(*net.TCPAddr).Port); err != nil {
			slog.Warn("mdns advertisement failed", "error", err)
		}
	}
	return nil
}

func (cp *ControlPlane) stopServer() {
	if cp.ln == nil {
		return
	}
	if cp.advertiser != nil {
		cp.advertiser.Stop()
	}
	cp.ln.Close()
	cp.ln = nil
	cp.update(func(st *Status) {
		st.ServerRunning = false
		st.Addr = ""
	})
	slog.Info("server stopped")
}

// acceptOnce waits up to AcceptTimeout for one connection and serves it
func (cp *ControlPlane) acceptOnce(ctx context.Context) {
	cp.ln.SetDeadline(time.Now().Add(cp.cfg.AcceptTimeout))

	conn, err := cp.ln.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || ctx.Err() != nil {
			return
		}
		slog.Error("server error", "error", err)
		cp.stopServer()
		return
	}

	cp.serve(conn)
}

// serve answers one request and closes the connection
func (cp *ControlPlane) serve(conn net.Conn) {
	defer conn.Close()

	reqID := uuid.NewString()
	log := slog.With("request_id", reqID, "remote", conn.RemoteAddr().String())

	conn.SetDeadline(time.Now().Add(cp.cfg.ClientTimeout))

	buf := make([]byte, requestBufSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			log.Warn("error handling request", "error", err)
			io.WriteString(conn, internalError)
		}
		return
	}

	req, parseErr := ParseRequest(string(buf[:n]))
	if parseErr != nil {
		log.Warn("error parsing request", "error", parseErr)
	}

	resp := cp.dispatch.Dispatch(req, parseErr)
	log.Info("request", "method", req.Method, "path", req.Path, "code", resp.Code)

	if _, err := resp.WriteTo(conn); err != nil {
		log.Warn("error sending response", "error", err)
	}
}
