package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLHandler handles GraphQL HTTP requests
type GraphQLHandler struct {
	schema   graphql.Schema
	logger   logging.Logger
	maxDepth int
}

// NewGraphQLHandler creates a new GraphQL HTTP handler
func NewGraphQLHandler(schema graphql.Schema, logger logging.Logger) *GraphQLHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphQLHandler{
		schema:   schema,
		logger:   logger.With(logging.Component("graphql")),
		maxDepth: DefaultMaxDepth,
	}
}

// WithMaxDepth sets the selection depth limit.
func (h *GraphQLHandler) WithMaxDepth(n int) *GraphQLHandler {
	h.maxDepth = n
	return h
}

// ServeHTTP executes one query. Resolver errors are reported in the body
// with a 200, as GraphQL clients expect.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed", CodeValidation))
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body", CodeValidation))
		return
	}
	if err := ValidateQueryDepth(req.Query, h.maxDepth); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error(), CodeValidation))
		return
	}

	result := ExecuteQueryWithVariables(r.Context(), h.schema, req.Query, req.Variables, req.OperationName)

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = convertErrors(result.Errors)
		h.logger.Debug("graphql query returned errors",
			logging.Count(len(result.Errors)),
			logging.String("first_error", result.Errors[0].Message))
	}
	writeJSON(w, http.StatusOK, response)
}

func convertErrors(errs []gqlerrors.FormattedError) []GraphQLError {
	out := make([]GraphQLError, len(errs))
	for i, err := range errs {
		out[i] = GraphQLError{Message: err.Message, Path: err.Path, Extensions: err.Extensions}
		if out[i].Extensions == nil {
			// Parse and validation failures never reach a resolver.
			out[i].Extensions = map[string]any{"code": CodeValidation}
		}
	}
	return out
}

func errorResponse(message, code string) GraphQLResponse {
	return GraphQLResponse{Errors: []GraphQLError{{
		Message:    message,
		Extensions: map[string]any{"code": code},
	}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
