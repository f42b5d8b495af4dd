package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/optimization"
)

// JSON-RPC 2.0 error codes
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jobParams struct {
	JobID string `json:"job_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondWithError(w, rpcInvalidRequest, "Request too large", nil)
			return
		}
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "tsp.solve":
		var params SolveRequest
		if err = decodeParams(request.Params, &params); err == nil {
			result, err = s.startJob(params)
		}
	case "tsp.status":
		var params jobParams
		if err = decodeJobParams(request.Params, &params); err == nil {
			result, err = s.jobStatus(params.JobID)
		}
	case "tsp.cancel":
		var params jobParams
		if err = decodeJobParams(request.Params, &params); err == nil {
			if err = s.cancelJob(params.JobID); err == nil {
				result = map[string]interface{}{
					"job_id": params.JobID,
					"status": optimization.StatusCancelled,
				}
			}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if isInvalidInput(err) {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams accepts params either as an object or as an array whose
// first element is the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.Wrap(ErrInvalidRequest, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return errors.Wrap(ErrInvalidRequest, err.Error())
		}
		if len(list) == 0 {
			return errors.Wrap(ErrInvalidRequest, "missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(ErrInvalidRequest, "invalid parameter format, expected object")
	}
	return nil
}

func decodeJobParams(raw json.RawMessage, params *jobParams) error {
	if err := decodeParams(raw, params); err != nil {
		return err
	}
	if params.JobID == "" {
		return errors.Wrap(ErrInvalidRequest, "job_id is required")
	}
	return nil
}

// isInvalidInput reports whether err was caused by the caller's input.
func isInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, optimization.ErrInvalidConfig)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
