package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
)

const defaultNetworkMutexPort = 45231
const networkMutexGrace = 5 * time.Second

// NetworkMutex implements ports.MutexPort over the loopback-TCP
// leader/follower protocol: the first process to
// bind the port becomes leader and serves identifying JSON to anyone
// else; later arrivals connect, wait for the leader's socket to close,
// then retry becoming leader themselves.
type NetworkMutex struct {
	Port int
}

func NewNetworkMutex(port int) NetworkMutex {
	if port <= 0 {
		port = defaultNetworkMutexPort
	}
	return NetworkMutex{Port: port}
}

type networkMutexIdentity struct {
	Cwd string `json:"cwd"`
	Pid int    `json:"pid"`
}

func (n NetworkMutex) Acquire(ctx context.Context) (func(), error) {
	for {
		release, err := n.tryBecomeLeader(ctx)
		if err == nil {
			return release, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !n.waitForLeaderExit(ctx) {
			return nil, core.NewProcessTermError("cancelled while waiting for the network mutex leader to release", 1, nil)
		}
	}
}

func (n NetworkMutex) tryBecomeLeader(ctx context.Context) (func(), error) {
	addr := fmt.Sprintf("127.0.0.1:%d", n.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	cwd, _ := os.Getwd()
	identity := networkMutexIdentity{Cwd: cwd, Pid: os.Getpid()}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(identity)
	})
	server := &http.Server{Handler: mux}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = server.Serve(listener)
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), networkMutexGrace)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			_ = listener.Close()
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(networkMutexGrace):
				log.Warn().Int("port", n.Port).Msg("network mutex sockets still live after grace period, forcing exit")
				os.Exit(1)
			}
		})
	}
	return release, nil
}

// waitForLeaderExit queries the current leader's identity, warns with
// it, then blocks on a raw connection until the leader's listener
// closes. Returns false if the context is cancelled first.
func (n NetworkMutex) waitForLeaderExit(ctx context.Context) bool {
	addr := fmt.Sprintf("127.0.0.1:%d", n.Port)
	if identity, err := n.fetchIdentity(ctx, addr); err == nil {
		log.Ctx(ctx).Warn().Str("cwd", identity.Cwd).Int("pid", identity.Pid).Msg("another instance is running, waiting")
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return true
	}
	defer conn.Close()

	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return false
		}
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		if _, err := conn.Read(buf); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return true
		}
	}
}

func (n NetworkMutex) fetchIdentity(ctx context.Context, addr string) (networkMutexIdentity, error) {
	client := http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/", nil)
	if err != nil {
		return networkMutexIdentity{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return networkMutexIdentity{}, err
	}
	defer resp.Body.Close()
	var identity networkMutexIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return networkMutexIdentity{}, err
	}
	return identity, nil
}

var _ ports.MutexPort = NetworkMutex{}
