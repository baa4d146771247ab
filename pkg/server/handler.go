package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cast"
	"github.com/toolbridge/toolbridge/pkg/apicall"
	"github.com/toolbridge/toolbridge/pkg/auth"
	"github.com/toolbridge/toolbridge/pkg/models"
	"github.com/toolbridge/toolbridge/pkg/openapi"
	"github.com/toolbridge/toolbridge/pkg/services"
)

// SpecView is the per-endpoint slice of state the handlers need: the indexed
// operations and the upstream base URL.
type SpecView struct {
	Endpoint   string
	BaseURL    string
	Title      string
	Doc        *openapi3.T
	Operations []openapi.Operation
}

// SpecLookup resolves an endpoint name to its loaded spec view.
type SpecLookup func(endpoint string) (*SpecView, bool)

// ReloadResponse represents the response from a reload operation
type ReloadResponse struct {
	Success      bool     `json:"success"`
	ReloadedAPIs []string `json:"reloaded_apis,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// HandleHealth handles the /health endpoint for health checks
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"service": "toolbridge",
		})
	}
}

// HandleReload handles the /reload endpoint for reloading API specifications.
// With an api query parameter only that specification is reloaded; otherwise
// all database-backed specs are refreshed.
func HandleReload(reloadAll func() ([]string, error), reloadOne func(endpoint string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}

		if api := r.URL.Query().Get("api"); api != "" {
			response := ReloadResponse{Success: true, ReloadedAPIs: []string{api}}
			if err := reloadOne(api); err != nil {
				response = ReloadResponse{Error: err.Error()}
				log.Printf("Reload of %q failed: %v", api, err)
			} else {
				log.Printf("Reloaded API %q", api)
			}
			writeJSON(w, http.StatusOK, response)
			return
		}

		reloadedAPIs, err := reloadAll()
		response := ReloadResponse{
			Success:      err == nil,
			ReloadedAPIs: reloadedAPIs,
		}
		if err != nil {
			response.Error = err.Error()
			log.Printf("Reload failed: %v", err)
		} else {
			log.Printf("Reloaded %d APIs: %v", len(reloadedAPIs), reloadedAPIs)
		}

		writeJSON(w, http.StatusOK, response)
	}
}

// HandleOperations serves GET /operations?api=<endpoint>[&operationId=<id>]:
// the indexed operation list of one loaded spec, optionally filtered to a
// single operation.
func HandleOperations(lookup SpecLookup) http.HandlerFunc {
	type operationSummary struct {
		OperationID string             `json:"operationId,omitempty"`
		Summary     string             `json:"summary,omitempty"`
		Description string             `json:"description,omitempty"`
		Path        string             `json:"path"`
		Method      string             `json:"method"`
		Parameters  []openapi.ParamSpec `json:"parameters,omitempty"`
		Tags        []string           `json:"tags,omitempty"`
	}

	summarize := func(op *openapi.Operation) operationSummary {
		return operationSummary{
			OperationID: op.OperationID,
			Summary:     op.Summary,
			Description: op.Description,
			Path:        op.Path,
			Method:      op.Method,
			Parameters:  op.ParamSpecs(),
			Tags:        op.Tags,
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		view, serr, status := lookupView(r, lookup)
		if serr != nil {
			writeError(w, serr, status)
			return
		}

		if id := r.URL.Query().Get("operationId"); id != "" {
			op, err := openapi.FindOperation(view.Operations, id)
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "operation not found"), http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, summarize(op))
			return
		}

		summaries := make([]operationSummary, 0, len(view.Operations))
		for i := range view.Operations {
			summaries = append(summaries, summarize(&view.Operations[i]))
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

// HandleTemplate serves GET /template?api=<endpoint>&operationId=<id>: a
// placeholder-filled request template for one operation.
func HandleTemplate(lookup SpecLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, serr, status := lookupView(r, lookup)
		if serr != nil {
			writeError(w, serr, status)
			return
		}

		id := r.URL.Query().Get("operationId")
		if id == "" {
			writeError(w, NewErrorWithContext(r.Context(), ErrorTypeValidation, "operationId query parameter is required", ""), http.StatusBadRequest)
			return
		}

		op, err := openapi.FindOperation(view.Operations, id)
		if err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "operation not found"), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, openapi.BuildRequestTemplate(view.BaseURL, op))
	}
}

// HandleCall serves POST /call: the caller submits a request descriptor and
// receives the result envelope. The upstream outcome, success or failure, is
// always delivered as HTTP 200 with the envelope describing what happened;
// only a malformed call request itself produces a 4xx.
//
// Optional top-level fields alongside the descriptor:
//
//	api         - endpoint name of a loaded spec; supplies the base URL and
//	              stored auth defaults when the descriptor omits them
//	operationId - operation to resolve within that spec
//	validate    - when true, validate the body against the operation's
//	              request body schema before calling upstream
func HandleCall(exec *apicall.Executor, lookup SpecLookup, authState *auth.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeValidation, "invalid JSON body"), http.StatusBadRequest)
			return
		}

		api := cast.ToString(raw["api"])
		operationID := cast.ToString(raw["operationId"])
		validate := cast.ToBool(raw["validate"])
		delete(raw, "api")
		delete(raw, "operationId")
		delete(raw, "validate")

		var view *SpecView
		if api != "" && lookup != nil {
			view, _ = lookup(api)
		}

		// An api reference may stand in for an explicit endpoint.
		if cast.ToString(raw["endpoint"]) == "" && view != nil && view.BaseURL != "" {
			raw["endpoint"] = view.BaseURL
		}

		var op *openapi.Operation
		if operationID != "" {
			if view == nil {
				writeError(w, NewErrorWithContext(r.Context(), ErrorTypeValidation, "operationId requires a loaded api", operationID), http.StatusBadRequest)
				return
			}
			found, err := openapi.FindOperation(view.Operations, operationID)
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "operation not found"), http.StatusNotFound)
				return
			}
			op = found
			if cast.ToString(raw["path"]) == "" {
				raw["path"] = op.Path
			}
			if cast.ToString(raw["method"]) == "" {
				raw["method"] = op.Method
			}
		}

		d, err := apicall.ParseDescriptor(raw)
		if err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeValidation, "invalid request descriptor"), http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if ra := storedAuthDefault(d, api, view, authState); ra != nil {
			ctx = auth.WithRequestAuth(ctx, ra)
		}

		if validate && op != nil {
			violations, err := openapi.ValidateBodyForOperation(op, d.Body)
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeInternal, "body validation failed"), http.StatusInternalServerError)
				return
			}
			if len(violations) > 0 {
				writeJSON(w, http.StatusOK, &apicall.Result{
					Success:      false,
					ErrorMessage: "request body does not match the operation schema",
					ErrorDetail:  violations,
				})
				return
			}
		}

		writeJSON(w, http.StatusOK, exec.Execute(ctx, d))
	}
}

// storedAuthDefault derives the auth fallback the executor should use when
// the caller chose no scheme: the stored spec token, sent under the scheme the
// spec document declares. Returns nil when no usable default exists.
func storedAuthDefault(d *apicall.Descriptor, api string, view *SpecView, authState *auth.StateManager) *auth.RequestAuth {
	if d.AuthType != "" && d.AuthType != auth.SchemeNone {
		return nil
	}
	if api == "" || view == nil || authState == nil {
		return nil
	}
	spec, ok := authState.GetSpec(api)
	if !ok {
		return nil
	}

	ra := auth.NewRequestAuth(view.Doc, spec)
	if ra.Token == "" {
		return nil
	}
	// A stored token with no declared scheme is sent as a bearer value. A
	// token alone cannot serve basic auth, so only bearer is defaulted.
	if ra.Scheme == auth.SchemeNone {
		ra.Scheme = auth.SchemeBearer
	}
	if ra.Scheme != auth.SchemeBearer {
		return nil
	}
	return ra
}

func lookupView(r *http.Request, lookup SpecLookup) (*SpecView, *ServerError, int) {
	api := r.URL.Query().Get("api")
	if api == "" {
		return nil, NewErrorWithContext(r.Context(), ErrorTypeValidation, "api query parameter is required", ""), http.StatusBadRequest
	}
	view, ok := lookup(api)
	if !ok {
		return nil, NewErrorWithContext(r.Context(), ErrorTypeNotFound, "unknown api", api), http.StatusNotFound
	}
	return view, nil, 0
}

// Spec management request types

type ImportSpecRequest struct {
	Name         string `json:"name"`
	EndpointPath string `json:"endpoint_path"`
	SpecContent  string `json:"spec_content"`
	FileFormat   string `json:"file_format,omitempty"`
	APIKeyToken  string `json:"api_key_token,omitempty"`
	Active       *bool  `json:"active,omitempty"`
}

type UpdateSpecRequest struct {
	Name         string `json:"name,omitempty"`
	EndpointPath string `json:"endpoint_path,omitempty"`
	SpecContent  string `json:"spec_content,omitempty"`
	FileFormat   string `json:"file_format,omitempty"`
	APIKeyToken  string `json:"api_key_token,omitempty"`
	Active       *bool  `json:"active,omitempty"`
}

// HandleSpecs serves GET (list) and POST (create) on /specs.
func HandleSpecs(svc *services.SpecService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			specs, err := svc.GetAllSpecs()
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeDatabase, "failed to list specs"), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, redactSpecs(specs))

		case http.MethodPost:
			var req ImportSpecRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeValidation, "invalid JSON body"), http.StatusBadRequest)
				return
			}
			if req.Name == "" || req.EndpointPath == "" || req.SpecContent == "" {
				writeError(w, NewErrorWithContext(r.Context(), ErrorTypeValidation, "name, endpoint_path and spec_content are required", ""), http.StatusBadRequest)
				return
			}

			format := req.FileFormat
			if format == "" {
				format = detectFormat(req.SpecContent)
			}
			var token *string
			if req.APIKeyToken != "" {
				token = &req.APIKeyToken
			}

			if err := svc.CreateSpecFromContent(req.Name, req.EndpointPath, req.SpecContent, format, token); err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeDatabase, "failed to create spec"), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "spec created"})

		default:
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
		}
	}
}

// HandleSpecByID serves /specs/{id} and the activate/deactivate/token
// sub-resources.
func HandleSpecByID(svc *services.SpecService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/specs/")
		if path == "" {
			writeError(w, NewError(ErrorTypeValidation, "spec ID required", ""), http.StatusBadRequest)
			return
		}

		parts := strings.Split(path, "/")
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			writeError(w, NewError(ErrorTypeValidation, "invalid spec ID", parts[0]), http.StatusBadRequest)
			return
		}

		if len(parts) == 2 {
			handleSpecAction(w, r, svc, id, parts[1])
			return
		}

		switch r.Method {
		case http.MethodGet:
			spec, err := svc.GetSpecByID(id)
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "spec not found"), http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, redactSpec(spec))

		case http.MethodPut:
			var req UpdateSpecRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeValidation, "invalid JSON body"), http.StatusBadRequest)
				return
			}
			spec, err := svc.GetSpecByID(id)
			if err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "spec not found"), http.StatusNotFound)
				return
			}
			applyUpdate(spec, &req)
			if _, err := svc.UpdateSpec(spec); err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeDatabase, "failed to update spec"), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "spec updated"})

		case http.MethodDelete:
			if err := svc.DeleteSpec(id); err != nil {
				writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "failed to delete spec"), http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "spec deleted"})

		default:
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
		}
	}
}

func handleSpecAction(w http.ResponseWriter, r *http.Request, svc *services.SpecService, id int, action string) {
	switch action {
	case "activate":
		if r.Method != http.MethodPost {
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}
		if err := svc.ActivateSpec(id); err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "failed to activate spec"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "spec activated"})

	case "deactivate":
		if r.Method != http.MethodPost {
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}
		if err := svc.DeactivateSpec(id); err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "failed to deactivate spec"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "spec deactivated"})

	case "token":
		if r.Method != http.MethodPut {
			writeError(w, NewError(ErrorTypeValidation, "method not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			APIKeyToken string `json:"api_key_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeValidation, "invalid JSON body"), http.StatusBadRequest)
			return
		}
		var token *string
		if body.APIKeyToken != "" {
			token = &body.APIKeyToken
		}
		if err := svc.UpdateAPIKeyToken(id, token); err != nil {
			writeError(w, WrapWithContext(r.Context(), err, ErrorTypeNotFound, "failed to update token"), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "token updated"})

	default:
		writeError(w, NewError(ErrorTypeNotFound, "unknown action", action), http.StatusNotFound)
	}
}

func applyUpdate(spec *models.APISpec, req *UpdateSpecRequest) {
	if req.Name != "" {
		spec.Name = req.Name
	}
	if req.EndpointPath != "" {
		spec.EndpointPath = req.EndpointPath
	}
	if req.SpecContent != "" {
		spec.SpecContent = req.SpecContent
		size := len(req.SpecContent)
		spec.FileSize = &size
	}
	if req.FileFormat != "" {
		spec.FileFormat = &req.FileFormat
	}
	if req.APIKeyToken != "" {
		spec.APIKeyToken = &req.APIKeyToken
	}
	if req.Active != nil {
		spec.IsActive = req.Active
	}
}

// redactSpec strips the stored token before a spec row leaves the service.
func redactSpec(spec *models.APISpec) *models.APISpec {
	out := *spec
	if out.APIKeyToken != nil && *out.APIKeyToken != "" {
		masked := "***"
		out.APIKeyToken = &masked
	}
	return &out
}

func redactSpecs(specs []*models.APISpec) []*models.APISpec {
	out := make([]*models.APISpec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, redactSpec(spec))
	}
	return out
}

func detectFormat(content string) string {
	if strings.HasPrefix(strings.TrimSpace(content), "{") {
		return "json"
	}
	return "yaml"
}

// CORSMiddleware sets permissive CORS headers and answers preflight requests.
func CORSMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, serr *ServerError, status int) {
	serr.LogError()
	writeJSON(w, status, serr)
}
