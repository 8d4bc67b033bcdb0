package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/app"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "online", "app_name": AppName})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query     string `json:"query"`
		SkipCache *bool  `json:"skip_cache"`
	}
	if err := decodeBody(r, "query", &body.Query, &body); err != nil {
		sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "query is required")
		return
	}

	skip := body.SkipCache != nil && *body.SkipCache
	if v := r.URL.Query().Get("skip_cache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "skip_cache must be a boolean")
			return
		}
		skip = b
	}

	resp, err := s.svc.Query(r.Context(), body.Query, skip)
	if err != nil {
		if errors.Is(err, app.ErrParseFailed) {
			sendError(w, r, http.StatusBadRequest, "PARSE_FAILED", app.MsgParseFailed)
			return
		}
		s.logger.Error("server: query failed", "request_id", requestID(r), "error", err.Error())
		sendError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Error processing query")
		return
	}
	sendJSON(w, http.StatusOK, resp)
}

func (s *Server) listMibs(w http.ResponseWriter, _ *http.Request) {
	mibs := s.svc.LoadedMibs()
	sendJSON(w, http.StatusOK, map[string]any{"mibs": mibs, "count": len(mibs)})
}

func (s *Server) uploadMib(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FilePath string `json:"file_path"`
	}
	if err := decodeBody(r, "file_path", &body.FilePath, &body); err != nil || body.FilePath == "" {
		sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "file_path is required")
		return
	}

	label, err := s.svc.AddMib(body.FilePath)
	if err != nil {
		s.logger.Warn("server: mib upload failed", "file", body.FilePath, "error", err.Error())
		sendError(w, r, http.StatusBadRequest, "MIB_UPLOAD_FAILED", "Failed to add MIB file")
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "MIB file added successfully",
		"mib":     label,
	})
}

func (s *Server) resolveName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, "name", &body.Name, &body); err != nil || body.Name == "" {
		sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "name is required")
		return
	}
	oid, ok := s.svc.ResolveName(body.Name)
	if !ok {
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "OID not found: "+body.Name)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"name": body.Name, "oid": oid})
}

func (s *Server) translateOID(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OID string `json:"oid"`
	}
	if err := decodeBody(r, "oid", &body.OID, &body); err != nil || body.OID == "" {
		sendError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "oid is required")
		return
	}
	name, ok := s.svc.TranslateOID(body.OID)
	if !ok {
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "OID not found: "+body.OID)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"oid": body.OID, "name": name})
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	n := s.svc.ClearCache(r.URL.Query().Get("prefix"))
	sendJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Cache cleared successfully",
		"cleared": n,
	})
}

// decodeBody reads either a JSON object into obj or a bare JSON string into
// str. field names the expected key for error messages.
func decodeBody(r *http.Request, field string, str *string, obj any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("%s is required", field)
	}
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, str); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
