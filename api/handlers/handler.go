package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"google.golang.org/protobuf/proto"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/decode"
	"github.com/wsdottie/dottie-go/internal/feed"
	"github.com/wsdottie/dottie-go/pkg/dottie"
)

const (
	maxDecodeBytes = 10 << 20
	protoMediaType = "application/x-protobuf"
)

// Handler handles HTTP requests
type Handler struct {
	client  dottie.Client
	decoder *decode.Decoder
}

// NewHandler creates a new HTTP handler
func NewHandler(client dottie.Client) *Handler {
	return &Handler{client: client, decoder: decode.New()}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/apis", h.handleAPIs).Methods("GET")
	r.HandleFunc("/apis/{api}", h.handleAPI).Methods("GET")
	r.HandleFunc("/apis/{api}/{function}", h.handleFetch).Methods("GET")
	r.HandleFunc("/decode", h.handleDecode).Methods("POST")
}

// Response wraps API responses
type Response struct {
	Data    interface{} `json:"data"`
	Updated string      `json:"updated,omitempty"`
	Expires string      `json:"expires,omitempty"`
	Cached  bool        `json:"cached,omitempty"`
}

// DecodeResponse is the result of POST /decode
type DecodeResponse struct {
	Data dottie.Value `json:"data"`
	Tier string       `json:"tier"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string         `json:"error"`
	Kind   string         `json:"kind,omitempty"`
	Issues catalog.Issues `json:"issues,omitempty"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"title":  "dottie-go",
		"readme": "GET /apis lists the WSDOT and WSF endpoints; GET /apis/{api}/{function} fetches one",
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAPIs(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Data: h.client.APIs(),
	}
	if last := h.client.GetLastUpdate(); !last.IsZero() {
		response.Updated = last.Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.client.Endpoints(mux.Vars(r)["api"])
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Data: endpoints})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	params := make(map[string]string)
	for name := range query {
		if name == "refresh" || name == "format" {
			continue
		}
		params[name] = query.Get(name)
	}

	fetch := h.client.Fetch
	if query.Get("refresh") == "true" {
		fetch = h.client.Refresh
	}
	resp, err := fetch(r.Context(), vars["api"], vars["function"], params)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	if wantsProto(r) {
		h.writeProto(w, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{
		Data:    resp.Value,
		Updated: resp.FetchedAt.Format(time.RFC3339),
		Expires: resp.ExpiresAt.Format(time.RFC3339),
		Cached:  resp.Cached,
	})
}

func (h *Handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDecodeBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxDecodeBytes {
		h.writeError(w, "Body too large", http.StatusRequestEntityTooLarge)
		return
	}

	v, tier, err := h.decoder.DecodeTier(string(body))
	if err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: string(feed.KindDecode)})
		return
	}
	h.writeJSON(w, http.StatusOK, DecodeResponse{Data: v, Tier: tier.String()})
}

func wantsProto(r *http.Request) bool {
	if r.URL.Query().Get("format") == "proto" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), protoMediaType)
}

func (h *Handler) writeProto(w http.ResponseWriter, resp dottie.Response) {
	pv, err := resp.Value.ToProto()
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	b, err := proto.Marshal(pv)
	if err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protoMediaType)
	w.Header().Set("X-Dottie-Updated", resp.FetchedAt.Format(time.RFC3339))
	w.Header().Set("X-Dottie-Expires", resp.ExpiresAt.Format(time.RFC3339))
	w.Write(b)
}

// writeFailure maps client errors onto HTTP statuses
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, dottie.ErrUnknownAPI) || errors.Is(err, dottie.ErrUnknownEndpoint) {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	var fe *dottie.FetchError
	if !errors.As(err, &fe) {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusBadGateway
	switch fe.Kind {
	case feed.KindInvalidParams:
		status = http.StatusBadRequest
	case feed.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	iss, _ := catalog.AsIssues(fe.Err)
	h.writeJSON(w, status, ErrorResponse{Error: fe.Error(), Kind: string(fe.Kind), Issues: iss})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	b, err := gojson.Marshal(data)
	if err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(b, '\n'))
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	b, _ := gojson.Marshal(ErrorResponse{Error: message})
	w.Write(append(b, '\n'))
}
