// Package main provides an HTTP JSON API server for the fdt library,
// the structural analogue of the teacher's cmd/server BPTree API: a
// single shared tree guarded by a RWMutex, one handler per query
// operation, CORS enabled for browser-based tooling.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fdt/internal/blobload"
	"fdt/pkg/fdt"
	"fdt/pkg/fdtlog"
	"fdt/pkg/fdtmetrics"
)

// Server holds the currently open Tree and provides HTTP handlers.
type Server struct {
	tree *fdt.Tree
	blob *blobload.Blob
	path string
	mu   sync.RWMutex
}

// Response is a generic JSON response envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusResponse reports whether a blob is currently open and its path.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Path      string `json:"path,omitempty"`
}

// OpenRequest is the request body for POST /api/open.
type OpenRequest struct {
	Path             string `json:"path"`
	StaticBufferSize int    `json:"staticBufferSize,omitempty"`
}

// NodeStatResponse mirrors fdt.NodeStat plus the node's resolved properties.
type NodeStatResponse struct {
	Name         string   `json:"name"`
	PropCount    int      `json:"propCount"`
	ChildCount   int      `json:"childCount"`
	SiblingCount int      `json:"siblingCount"`
	Properties   []string `json:"properties"`
}

var server = &Server{}

func main() {
	v := viper.New()
	pflag.String("listen.address", "0.0.0.0", "HTTP listen address")
	pflag.String("listen.port", "8080", "HTTP listen port")
	pflag.String("log-level", "info", "Log level: debug, info, warning, error")
	pflag.Parse()
	_ = v.BindPFlags(pflag.CommandLine)
	v.SetEnvPrefix("FDTSERVE")
	v.AutomaticEnv()

	ll, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		ll = log.InfoLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	corsHandler := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", corsHandler(server.handleStatus))
	mux.HandleFunc("/api/open", corsHandler(server.handleOpen))
	mux.HandleFunc("/api/close", corsHandler(server.handleClose))
	mux.HandleFunc("/api/find", corsHandler(server.handleFind))
	mux.HandleFunc("/api/phandle", corsHandler(server.handlePhandle))
	mux.HandleFunc("/api/compatible", corsHandler(server.handleCompatible))
	mux.HandleFunc("/api/prop", corsHandler(server.handleProp))
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%s", v.GetString("listen.address"), v.GetString("listen.port"))
	log.WithField("addr", addr).Info("fdtserve starting")
	log.Fatal(http.ListenAndServe(addr, mux))
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func nodeStatResponse(tree *fdt.Tree, node fdt.NodeID) (NodeStatResponse, bool) {
	stat, ok := tree.StatNode(node)
	if !ok {
		return NodeStatResponse{}, false
	}
	resp := NodeStatResponse{
		Name:         stat.Name,
		PropCount:    stat.PropCount,
		ChildCount:   stat.ChildCount,
		SiblingCount: stat.SiblingCount,
	}
	for i := 0; ; i++ {
		p := tree.Prop(node, i)
		if p == fdt.InvalidPropID {
			break
		}
		ps, _ := tree.StatProp(p)
		resp.Properties = append(resp.Properties, ps.Name)
	}
	return resp, true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatusResponse{Connected: s.tree != nil, Path: s.path}})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "path is required"})
		return
	}

	blob, err := blobload.Open(req.Path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to map blob: %v", err)})
		return
	}

	start := time.Now()
	tree, err := fdt.Open(blob.Bytes(), fdt.Config{StaticBufferSize: req.StaticBufferSize, Sink: fdtlog.New(nil)})
	fdtmetrics.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		blob.Close()
		if fe, ok := err.(*fdt.Error); ok {
			fdtmetrics.ParseErrors.WithLabelValues(fe.Kind.String()).Inc()
		}
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to parse blob: %v", err)})
		return
	}
	countNodesAndProps(tree)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob != nil {
		s.blob.Close()
	}
	s.tree = tree
	s.blob = blob
	s.path = req.Path

	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatusResponse{Connected: true, Path: req.Path}})
}

// countNodesAndProps walks the freshly opened tree once to report
// cumulative parse counters; it is separate from the parser itself so the
// core library stays metrics-agnostic.
func countNodesAndProps(tree *fdt.Tree) {
	var walk func(fdt.NodeID)
	walk = func(id fdt.NodeID) {
		for n := id; n != fdt.InvalidNodeID; n = tree.Sibling(n) {
			fdtmetrics.NodesParsed.Inc()
			if stat, ok := tree.StatNode(n); ok {
				fdtmetrics.PropertiesParsed.Add(float64(stat.PropCount))
			}
			walk(tree.Child(n))
		}
	}
	walk(tree.Root())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no blob open"})
		return
	}
	if err := s.blob.Close(); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	s.tree = nil
	s.blob = nil
	s.path = ""
	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "path is required"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no blob open"})
		return
	}
	node := s.tree.Find(path)
	if node == fdt.InvalidNodeID {
		writeJSON(w, http.StatusNotFound, Response{Error: "no node found at path"})
		return
	}
	resp, _ := nodeStatResponse(s.tree, node)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

func (s *Server) handlePhandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	handleStr := r.URL.Query().Get("handle")
	handle, err := strconv.ParseUint(handleStr, 0, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid handle format"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no blob open"})
		return
	}
	node := s.tree.FindPhandle(uint32(handle))
	if node == fdt.InvalidNodeID {
		writeJSON(w, http.StatusNotFound, Response{Error: "no node with that phandle"})
		return
	}
	resp, _ := nodeStatResponse(s.tree, node)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

func (s *Server) handleCompatible(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	compat := r.URL.Query().Get("s")
	if compat == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "s is required"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no blob open"})
		return
	}

	var results []NodeStatResponse
	for node := s.tree.FindCompatible(fdt.InvalidNodeID, compat); node != fdt.InvalidNodeID; node = s.tree.FindCompatible(node, compat) {
		if resp, ok := nodeStatResponse(s.tree, node); ok {
			results = append(results, resp)
		}
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: results})
}

func (s *Server) handleProp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	path := r.URL.Query().Get("path")
	name := r.URL.Query().Get("name")
	if path == "" || name == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "path and name are required"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no blob open"})
		return
	}
	node := s.tree.Find(path)
	if node == fdt.InvalidNodeID {
		writeJSON(w, http.StatusNotFound, Response{Error: "no node found at path"})
		return
	}
	prop := s.tree.FindProp(node, name)
	if prop == fdt.InvalidPropID {
		writeJSON(w, http.StatusNotFound, Response{Error: "no such property"})
		return
	}
	stat, _ := s.tree.StatProp(prop)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"name":   stat.Name,
		"length": stat.Length,
		"data":   stat.Data,
	}})
}
