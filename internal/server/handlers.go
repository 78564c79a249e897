package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/testcase"
	"github.com/michaelbrown/playground/internal/verdict"
	"github.com/michaelbrown/playground/internal/workspace"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, runner.ErrRunInProgress),
		errors.Is(err, testcase.ErrTooManyCases),
		errors.Is(err, testcase.ErrLastCase):
		return http.StatusConflict
	case errors.Is(err, testcase.ErrIndexOutOfRange),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, piston.ErrInvalidLanguage),
		errors.Is(err, workspace.ErrNoEditor),
		errors.Is(err, runner.ErrNoTestCases),
		errors.Is(err, share.ErrInvalidToken),
		errors.Is(err, storage.ErrAmbiguous):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

// --- Languages ---

type languageInfo struct {
	Name     piston.Language `json:"name"`
	Template string          `json:"template"`
	Default  bool            `json:"default,omitempty"`
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	var langs []languageInfo
	for _, l := range piston.Languages() {
		langs = append(langs, languageInfo{
			Name:     l,
			Template: piston.Template(l),
			Default:  l == piston.DefaultLanguage,
		})
	}
	writeJSON(w, http.StatusOK, langs)
}

// --- Workspaces ---

type workspaceResponse struct {
	ID        string          `json:"id"`
	Language  piston.Language `json:"language"`
	Code      string          `json:"code"`
	TestCases []testcase.Case `json:"test_cases"`
	Mode      runner.Mode     `json:"mode"`
	Running   bool            `json:"running"`
	LastRun   *present.View   `json:"last_run,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toWorkspaceResponse(aw *ActiveWorkspace) workspaceResponse {
	resp := workspaceResponse{
		ID:        aw.ID,
		Language:  aw.Language(),
		Code:      aw.Code(),
		TestCases: aw.Cases().Cases(),
		Mode:      aw.Runner().Mode(),
		Running:   aw.Running(),
		CreatedAt: aw.CreatedAt,
	}
	if snap, ok := aw.Runner().Last(); ok {
		v := present.FromSnapshot(snap)
		resp.LastRun = &v
	}
	return resp
}

type createWorkspaceRequest struct {
	Language  string          `json:"language"`
	Code      *string         `json:"code"`
	TestCases []testcase.Case `json:"test_cases"`
	Mode      string          `json:"mode"`
	Token     string          `json:"token"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	mode := s.cfg.RunMode()
	if req.Mode != "" {
		m, err := runner.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	aw := s.workspaces.Create()
	aw.Runner().SetMode(mode)
	if err := applyCreateRequest(aw, req); err != nil {
		s.workspaces.Remove(aw.ID)
		writeDomainError(w, err)
		return
	}

	s.logger.Info("workspace created", zap.String("workspace", aw.ID), zap.String("language", string(aw.Language())))
	writeJSON(w, http.StatusCreated, toWorkspaceResponse(aw))
}

func applyCreateRequest(aw *ActiveWorkspace, req createWorkspaceRequest) error {
	if req.Token != "" {
		st, err := share.Decode(req.Token)
		if err != nil {
			return err
		}
		return aw.Restore(*st)
	}
	if req.Language != "" {
		if err := aw.SetLanguage(req.Language); err != nil {
			return err
		}
	}
	if req.Code != nil {
		if err := aw.SetCode(*req.Code); err != nil {
			return err
		}
	}
	if req.TestCases != nil {
		return aw.Cases().Replace(req.TestCases)
	}
	return nil
}

// lookup resolves the {id} URL parameter or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*ActiveWorkspace, bool) {
	aw, ok := s.workspaces.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "workspace not found")
	}
	return aw, ok
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(aw))
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if !s.workspaces.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "workspace not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSetCode(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req setCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := aw.SetCode(req.Code); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(aw))
}

type setLanguageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req setLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := aw.SetLanguage(req.Language); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(aw))
}

// --- Test cases ---

type casesResponse struct {
	Index     int             `json:"index"`
	TestCases []testcase.Case `json:"test_cases"`
}

func caseIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func (s *Server) handleAddCase(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var c testcase.Case
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	i, err := aw.Cases().Add(c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, casesResponse{Index: i, TestCases: aw.Cases().Cases()})
}

func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	i, err := caseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case index")
		return
	}
	var c testcase.Case
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := aw.Cases().Update(i, c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, casesResponse{Index: i, TestCases: aw.Cases().Cases()})
}

func (s *Server) handleRemoveCase(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	i, err := caseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case index")
		return
	}
	if err := aw.Cases().Remove(i); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, casesResponse{Index: i, TestCases: aw.Cases().Cases()})
}

// --- Runs ---

type runResponse struct {
	Verdicts []verdict.Verdict `json:"verdicts"`
	View     present.View      `json:"view"`
}

// progressHook fans each snapshot out to the publisher and then to fn.
func (s *Server) progressHook(fn func(runner.Snapshot)) func(runner.Snapshot) {
	return func(snap runner.Snapshot) {
		if err := s.publisher.Publish(snap); err != nil {
			s.logger.Warn("publishing progress", zap.String("run_id", snap.RunID), zap.Error(err))
		}
		if fn != nil {
			fn(snap)
		}
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	verdicts, err := aw.Run(r.Context(), s.progressHook(nil))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		Verdicts: verdicts,
		View:     present.Build(verdicts, -1, len(verdicts)),
	})
}

// --- Share links ---

type createShareRequest struct {
	Title string `json:"title"`
}

type createShareResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req createShareRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	sh := &storage.Share{
		ID:    uuid.New().String(),
		Title: req.Title,
		State: aw.State(),
	}
	if err := s.store.CreateShare(r.Context(), sh); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createShareResponse{ID: sh.ID, Token: sh.Token})
}

type decodeShareRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleDecodeShare(w http.ResponseWriter, r *http.Request) {
	var req decodeShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	st, err := share.Decode(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	opts := storage.ShareListOptions{}

	if lang := r.URL.Query().Get("language"); lang != "" {
		l, err := piston.ParseLanguage(lang)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Language = l
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	shares, err := s.store.ListShares(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if shares == nil {
		shares = []storage.Share{}
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	sh, err := s.store.GetShare(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleExportShare(w http.ResponseWriter, r *http.Request) {
	sh, err := s.store.GetShare(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(storage.ExportMarkdown(sh)))
	case "json":
		data, err := storage.ExportJSON(sh)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "unknown format (use markdown or json)")
	}
}

func (s *Server) handleDeleteShare(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteShare(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
