package api

import (
	"bytes"
	"net/http"
	"strconv"

	"attnviz/pkg/controller"
	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/highlight"
	"attnviz/pkg/model"
	"attnviz/pkg/model/attention"
	"attnviz/pkg/render"
)

// State is a snapshot together with the data derived from it.
type State struct {
	*controller.Snapshot
	Edges         []highlight.Edge     `json:"edges"`
	SelectedToken *attention.TokenView `json:"selectedToken,omitempty"`
}

func newState(snap *controller.Snapshot) State {
	st := State{Snapshot: snap, Edges: snap.Edges()}
	if view, ok := snap.SelectedToken(); ok {
		st.SelectedToken = &view
	}
	return st
}

// TextRequest is the body of PUT /api/text.
type TextRequest struct {
	Text string `json:"text"`
}

// HyperparametersRequest is the body of PUT /api/hyperparameters. Omitted
// fields keep their current value; present ones are clamped to model.Ranges.
type HyperparametersRequest struct {
	ModelDimension *float64 `json:"modelDimension,omitempty"`
	NumHeads       *float64 `json:"numHeads,omitempty"`
	DropoutRate    *float64 `json:"dropoutRate,omitempty"`
	MaxSeqLength   *float64 `json:"maxSeqLength,omitempty"`
}

func (req HyperparametersRequest) values() map[model.Field]*float64 {
	return map[model.Field]*float64{
		model.FieldModelDimension: req.ModelDimension,
		model.FieldNumHeads:       req.NumHeads,
		model.FieldDropoutRate:    req.DropoutRate,
		model.FieldMaxSeqLength:   req.MaxSeqLength,
	}
}

// apply clamps every present field and merges it into hp.
func (req HyperparametersRequest) apply(hp model.Hyperparameters) (model.Hyperparameters, error) {
	values := req.values()
	for _, f := range model.Fields() {
		v := values[f]
		if v == nil {
			continue
		}
		rng, _ := model.RangeFor(f)
		next, err := hp.With(f, rng.Clamp(*v))
		if err != nil {
			return hp, err
		}
		hp = next
	}
	return hp, nil
}

// SelectionRequest is the body of POST /api/selection.
type SelectionRequest struct {
	Index *int `json:"index"`
}

// EdgesResponse is returned by GET /api/edges.
type EdgesResponse struct {
	Selection highlight.Selection `json:"selection"`
	Tokens    []string            `json:"tokens"`
	Edges     []highlight.Edge    `json:"edges"`
}

// LaTeXMatrix is one rendered matrix.
type LaTeXMatrix struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	LaTeX string `json:"latex"`
}

// LaTeXResponse is returned by GET /api/latex.
type LaTeXResponse struct {
	Matrices []LaTeXMatrix `json:"matrices"`
	Steps    []string      `json:"steps"`
	Token    []string      `json:"token,omitempty"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("PUT /api/text", s.handleSetText)
	mux.HandleFunc("PUT /api/hyperparameters", s.handleSetHyperparameters)
	mux.HandleFunc("GET /api/ranges", s.handleRanges)
	mux.HandleFunc("POST /api/selection", s.handleSelect)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	mux.HandleFunc("POST /api/recompute", s.handleRecompute)
	mux.HandleFunc("GET /api/edges", s.handleEdges)
	mux.HandleFunc("GET /api/latex", s.handleLaTeX)
	mux.HandleFunc("GET /api/svg", s.handleSVG)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
	})
	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, newState(s.ctrl.Snapshot()))
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, newState(s.ctrl.SetInputText(req.Text)))
}

func (s *Server) handleSetHyperparameters(w http.ResponseWriter, r *http.Request) {
	var req HyperparametersRequest
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	snap, err := s.ctrl.UpdateHyperparameters(req.apply)
	if err != nil {
		WriteAttnError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newState(snap))
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, model.Ranges)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Index == nil {
		WriteError(w, http.StatusBadRequest, "missing_field", "index is required")
		return
	}

	snap, err := s.ctrl.SelectToken(*req.Index)
	if err != nil {
		WriteAttnError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newState(snap))
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, newState(s.ctrl.ClearSelection()))
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, newState(s.ctrl.Recompute()))
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	WriteJSON(w, http.StatusOK, EdgesResponse{
		Selection: snap.Selection,
		Tokens:    snap.Tokens,
		Edges:     snap.Edges(),
	})
}

func (s *Server) handleLaTeX(w http.ResponseWriter, r *http.Request) {
	cols := s.opts.PreviewColumns
	if raw := r.URL.Query().Get("columns"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_parameter", "columns must be a positive integer")
			return
		}
		cols = n
	}

	snap := s.ctrl.Snapshot()
	l := render.NewLaTeX(cols)

	resp := LaTeXResponse{Steps: l.Steps(snap.Hyperparameters)}
	for _, nm := range snap.Tensors.Named() {
		resp.Matrices = append(resp.Matrices, LaTeXMatrix{Key: nm.Key, Name: nm.Name, LaTeX: l.Named(nm)})
	}
	if view, ok := snap.SelectedToken(); ok {
		resp.Token = l.TokenDetail(snap.Tokens[view.Index], view)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()

	var buf bytes.Buffer
	if err := render.SVG(&buf, snap.Tokens, snap.Selection, snap.Edges(), render.DefaultLayout()); err != nil {
		WriteAttnError(w, aerrors.Wrap(err, aerrors.ErrExportWriteFailed, aerrors.CategoryIO, "failed to render figure"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := newClient(s.hub, conn)
	if !s.hub.join(client) {
		conn.Close()
		return
	}
	// New clients start from the current state. A broadcast already in
	// flight may arrive after it; clients order events by revision.
	s.hub.sendTo(client, newEvent(EventSnapshot, newState(s.ctrl.Snapshot())))

	go client.writePump()
	go client.readPump()
}
