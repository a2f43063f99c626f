package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/models"
	"github.com/dmitrijs2005/blobgate/internal/server/services"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxFieldBytes    = 4 << 10
)

type CredentialService interface {
	Register(ctx context.Context, email, password string) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type Ingester interface {
	Ingest(ctx context.Context, c services.Credentials, body io.Reader, filename, contentType string) (string, error)
}

type Lister interface {
	ListOwned(ctx context.Context, c services.Credentials) ([]string, error)
}

type Transcoder interface {
	Transcode(ctx context.Context, c services.Credentials, sourceFilename string) (string, error)
}

type Handlers struct {
	credentials CredentialService
	ingester    Ingester
	lister      Lister
	transcoder  Transcoder
	logger      logging.Logger
}

func NewHandlers(c CredentialService, i Ingester, l Lister, t Transcoder, logger logging.Logger) *Handlers {
	return &Handlers{
		credentials: c,
		ingester:    i,
		lister:      l,
		transcoder:  t,
		logger:      logger.With("module", "httpapi"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return req, false
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, msgMissingCreds)
		return req, false
	}
	return req, true
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	if _, err := h.credentials.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Registration successful")
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.credentials.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", AccessToken: token})
}

// Upload streams the first file part of a multipart body into the caller's
// namespace. email and password fields must come before the file part
// unless the request carries a bearer token.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	creds := bearerCredentials(r)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeMessage(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		if part.FileName() == "" {
			value, err := readField(part)
			_ = part.Close()
			if err != nil {
				writeMessage(w, http.StatusBadRequest, msgInvalidBody)
				return
			}
			switch part.FormName() {
			case "email":
				creds.Email = value
			case "password":
				creds.Password = value
			}
			continue
		}

		if creds.Token == "" && (creds.Email == "" || creds.Password == "") {
			_ = part.Close()
			writeMessage(w, http.StatusBadRequest, msgCredsAfterFile)
			return
		}

		key, err := h.ingester.Ingest(r.Context(), creds, part, part.FileName(), part.Header.Get("Content-Type"))
		_ = part.Close()
		if err != nil {
			writeError(r.Context(), w, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, keyResponse{Message: "File uploaded successfully", Key: key})
		return
	}

	writeMessage(w, http.StatusBadRequest, msgNoFile)
}

func (h *Handlers) Files(w http.ResponseWriter, r *http.Request) {
	keys, err := h.lister.ListOwned(r.Context(), queryCredentials(r))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, filesResponse{Files: keys})
}

func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	key, err := h.transcoder.Transcode(r.Context(), queryCredentials(r), r.URL.Query().Get("filename"))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, keyResponse{Message: "File converted successfully", Key: key})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "OK"})
}

func bearerCredentials(r *http.Request) services.Credentials {
	v := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(v, common.BearerPrefix) {
		return services.Credentials{}
	}
	return services.Credentials{Token: strings.TrimSpace(strings.TrimPrefix(v, common.BearerPrefix))}
}

func queryCredentials(r *http.Request) services.Credentials {
	c := bearerCredentials(r)
	q := r.URL.Query()
	c.Email = q.Get("email")
	c.Password = q.Get("password")
	return c
}

func readField(part io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxFieldBytes {
		return "", errors.New("form field too large")
	}
	return string(b), nil
}
