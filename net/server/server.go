package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/boz/bringup/log"
	enet "github.com/boz/bringup/net"
	"github.com/boz/bringup/serviceset"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server interface {
	Address() string
	Run() error
	Close() error
}

type Opt func(*server) error

func WithAddress(address string) Opt {
	return func(s *server) error {
		s.address = address
		return nil
	}
}

func WithServiceSet(set serviceset.ServiceSet) Opt {
	return func(s *server) error {
		s.set = set
		return nil
	}
}

func WithLog(l logrus.FieldLogger) Opt {
	return func(s *server) error {
		s.l = l
		return nil
	}
}

type server struct {
	address string
	set     serviceset.ServiceSet

	listener net.Listener
	srv      *http.Server
	l        logrus.FieldLogger
}

func New(opts ...Opt) (Server, error) {

	s := &server{
		address: enet.DefaultListenAddress,
		l:       log.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.set == nil {
		return nil, errors.New("WithServiceSet required")
	}

	s.l = s.l.WithField("component", "server")

	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return nil, err
	}

	s.listener = l
	s.srv = &http.Server{
		Handler: s.router(),
	}

	return s, nil
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc(enet.ServicesPath, s.handleServiceList).
		Methods("GET")

	r.HandleFunc(enet.ServicesPath+"/{name}", s.handleServiceGet).
		Methods("GET")

	r.HandleFunc(enet.ServicesPath+"/{name}/reset", s.handleServiceReset).
		Methods("POST")

	r.HandleFunc(enet.ServicesPath+"/{name}/snapshot", s.handleServiceSnapshot).
		Methods("POST")

	return r
}

func (s *server) Run() error {
	s.l.WithField("address", s.Address()).Info("serving")
	err := s.srv.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *server) Close() error {
	return s.srv.Close()
}

func (s *server) Address() string {
	return s.listener.Addr().String()
}

func (s *server) handleServiceList(w http.ResponseWriter, r *http.Request) {
	set, err := s.set.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, set)
}

func (s *server) handleServiceGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.set.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, p)
}

func (s *server) handleServiceReset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.set.Reset(r.Context(), name); err != nil {
		s.l.WithField("service", name).WithError(err).Warn("reset")
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handleServiceSnapshot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.set.Snapshot(r.Context(), name); err != nil {
		s.l.WithField("service", name).WithError(err).Warn("snapshot")
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) writeJSON(w http.ResponseWriter, obj interface{}) {
	buf, err := json.Marshal(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", enet.RPCContentType)
	w.Write(buf)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, serviceset.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, serviceset.ErrNotSupported):
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
	case errors.Is(err, serviceset.ErrShutdown):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
