// Command nodesim runs a simulated proxy node. It serves the same REST and
// websocket surface a real node daemon exposes, keeps the pushed account set
// in memory, and logs every sync it receives. Useful for exercising a
// controller without provisioning real machines.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/wire"
)

type state struct {
	mu    sync.Mutex
	users map[int64]*wire.User
}

func (s *state) replaceAll(users []*wire.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[int64]*wire.User, len(users))
	for _, u := range users {
		s.users[u.ID] = u
	}
	return len(s.users)
}

func (s *state) apply(u *wire.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Removed {
		delete(s.users, u.ID)
		return
	}
	s.users[u.ID] = u
}

func (s *state) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func main() {
	addr := flag.String("addr", ":62050", "listen address")
	apiKey := flag.String("api-key", "", "require this X-API-Key on every request (optional)")
	flag.Parse()

	logger := logrus.NewEntry(logrus.StandardLogger())
	st := &state{users: make(map[int64]*wire.User)}
	upgrader := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}

	keyed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/ping", keyed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	mux.HandleFunc("/users", keyed(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var batch wire.UserBatch
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		n := st.replaceAll(batch.Users)
		logger.WithField("users", n).Info("full account sync applied")
		w.WriteHeader(http.StatusOK)
	}))

	mux.HandleFunc("/user", keyed(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var u wire.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		st.apply(&u)
		logger.WithField("user", u.Username).WithField("total", st.count()).Info("account update applied")
		w.WriteHeader(http.StatusOK)
	}))

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		logger.WithField("remote", conn.RemoteAddr().String()).Info("controller session opened")
		go serveSession(conn, st, logger)
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("node simulator listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func serveSession(conn *websocket.Conn, st *state, logger *logrus.Entry) {
	defer func() {
		_ = conn.Close()
		logger.Info("controller session closed")
	}()
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "users_sync":
			var batch wire.UserBatch
			if err := json.Unmarshal(msg.Payload, &batch); err != nil {
				logger.WithError(err).Warn("bad users_sync payload")
				continue
			}
			n := st.replaceAll(batch.Users)
			logger.WithField("users", n).Info("full account sync applied")
		case "user_update":
			var u wire.User
			if err := json.Unmarshal(msg.Payload, &u); err != nil {
				logger.WithError(err).Warn("bad user_update payload")
				continue
			}
			st.apply(&u)
			logger.WithField("user", u.Username).WithField("total", st.count()).Info("account update applied")
		default:
			logger.WithField("type", msg.Type).Warn("unknown message type")
		}
	}
}
