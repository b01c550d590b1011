package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/storage"
)

// DocumentHandler serves the verify and storage endpoints.
type DocumentHandler struct {
	service *docverify.Service
	store   storage.Store
	ttl     time.Duration

	// receipts is nil when no receipt signing key is configured
	receipts *crypto.ReceiptSigner
}

func NewDocumentHandler(service *docverify.Service, store storage.Store, ttl time.Duration, receipts *crypto.ReceiptSigner) *DocumentHandler {
	return &DocumentHandler{
		service:  service,
		store:    store,
		ttl:      ttl,
		receipts: receipts,
	}
}

// decodeDocument reads the {document} request body.
func decodeDocument(r *http.Request) (*oa.WrappedDocument, error) {
	var req api.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, api.NewRequestTooLargeError(fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		return nil, api.WrapMalformedRequestError(err, "failed to decode request body")
	}

	if len(req.Document) == 0 || string(req.Document) == "null" {
		return nil, api.NewMalformedRequestError("document is required")
	}

	doc, err := oa.ParseWrappedDocument(req.Document)
	if err != nil {
		return nil, docverify.WrapDocumentSchemaInvalidError(err, "document must be a JSON object")
	}
	return doc, nil
}

// verifyRequestDocument decodes and verifies the request document, returning the network it was verified on.
func (h *DocumentHandler) verifyRequestDocument(r *http.Request) (*oa.WrappedDocument, string, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, "", err
	}

	networkName, _, err := h.service.Verify(r.Context(), doc)
	if err != nil {
		return nil, networkName, err
	}

	logger.ContextWithLogAttrs(r.Context(), slog.String("network", networkName))
	return doc, networkName, nil
}

func parseDocumentID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", api.WrapMalformedRequestError(err, fmt.Sprintf("invalid document id %q", id))
	}
	return id, nil
}

// HandleVerify godoc
//
//	@Summary		Verify a document
//	@Description	Works out the network the wrapped document was issued on and runs the verification checks
//	@Description	(integrity, issuance status and issuer identity) against that network.
//	@Description
//	@Description	A document that fails any check is rejected with DOCUMENT_GENERIC_ERROR.
//	@Description	When the server has a receipt signing key the response includes a JWS receipt
//	@Description	(verify it with the keys at /.well-known/jwks.json).
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			x-api-key	header		string				true	"API key"
//	@Param			request		body		api.DocumentRequest	true	"Wrapped document"
//	@Success		200			{object}	api.VerifyResponse
//	@Failure		400			{object}	api.ErrorResponse
//	@Router			/verify [post]
func (h *DocumentHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	networkName, fragments, err := h.service.Verify(r.Context(), doc)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}
	logger.ContextWithLogAttrs(r.Context(), slog.String("network", networkName))

	documentHash, err := crypto.DocumentHash(doc.Raw())
	if err != nil {
		api.RespondWithError(w, r, api.WrapInternalError(err, "failed to hash document"))
		return
	}

	response := api.VerifyResponse{
		Network:      networkName,
		Valid:        true,
		DocumentHash: documentHash,
		Summary:      fragments,
	}

	if h.receipts != nil {
		token, receipt, err := h.receipts.Sign(networkName, documentHash, true)
		if err != nil {
			api.RespondWithError(w, r, api.WrapInternalError(err, "failed to sign receipt"))
			return
		}
		response.Receipt = token
		logger.ContextWithLogAttrs(r.Context(), slog.String("receipt_id", receipt.ID))
	}

	api.RespondWithJSONPayload(w, http.StatusOK, response)
}

// HandleStore godoc
//
//	@Summary		Verify and store a document
//	@Description	Verifies the document, encrypts it with a new key and stores the encrypted document.
//	@Description	The key is returned to the caller and is not kept by the server.
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			x-api-key	header		string				true	"API key"
//	@Param			request		body		api.DocumentRequest	true	"Wrapped document"
//	@Success		200			{object}	api.StorageResponse
//	@Failure		400			{object}	api.ErrorResponse
//	@Router			/storage [post]
func (h *DocumentHandler) HandleStore(w http.ResponseWriter, r *http.Request) {
	doc, _, err := h.verifyRequestDocument(r)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	h.storeDocument(w, r, uuid.NewString(), doc, "", h.store.Put)
}

// HandleQueue godoc
//
//	@Summary		Reserve a storage slot
//	@Description	Reserves a document id and the key its document will be encrypted with.
//	@Description	Use POST /storage/{id} to store the document once it has been issued.
//	@Tags			Documents
//	@Produce		json
//	@Param			x-api-key	header		string	true	"API key"
//	@Success		200			{object}	api.QueueResponse
//	@Router			/storage/queue [post]
func (h *DocumentHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	key, err := crypto.GenerateEncryptionKey()
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	id := uuid.NewString()
	if err := h.store.Put(r.Context(), id, storage.Record{Key: key}, h.ttl); err != nil {
		api.RespondWithError(w, r, api.WrapInternalError(err, "failed to queue document"))
		return
	}

	logger.ContextWithLogAttrs(r.Context(), slog.String("document_id", id))
	api.RespondWithJSONPayload(w, http.StatusOK, api.QueueResponse{ID: id, Key: key})
}

// HandleStoreQueued godoc
//
//	@Summary		Store a document in a reserved slot
//	@Description	Verifies the document and stores it under the reserved id, encrypted with the reserved key.
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			x-api-key	header		string				true	"API key"
//	@Param			id			path		string				true	"Document id returned by POST /storage/queue"
//	@Param			request		body		api.DocumentRequest	true	"Wrapped document"
//	@Success		200			{object}	api.StorageResponse
//	@Failure		400			{object}	api.ErrorResponse
//	@Failure		404			{object}	api.ErrorResponse
//	@Router			/storage/{id} [post]
func (h *DocumentHandler) HandleStoreQueued(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentID(r)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	record, err := h.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		api.RespondWithError(w, r, api.NewNotFoundError(fmt.Sprintf("no queued document with id %s", id)))
		return
	}
	if err != nil {
		api.RespondWithError(w, r, api.WrapInternalError(err, "failed to read queued document"))
		return
	}
	if !record.Queued() {
		api.RespondWithError(w, r, api.NewMalformedRequestError(fmt.Sprintf("document %s has already been stored", id)))
		return
	}

	doc, _, err := h.verifyRequestDocument(r)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	h.storeDocument(w, r, id, doc, record.Key, h.store.Fill)
}

// saveFunc writes a record, storage.Store Put or Fill.
type saveFunc func(ctx context.Context, id string, record storage.Record, ttl time.Duration) error

func (h *DocumentHandler) storeDocument(w http.ResponseWriter, r *http.Request, id string, doc *oa.WrappedDocument, existingKey string, save saveFunc) {
	encrypted, err := docverify.GetEncryptedDocument(string(doc.Raw()), existingKey)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	record := storage.Record{Document: &encrypted.EncryptedDocument}
	err = save(r.Context(), id, record, h.ttl)
	switch {
	case errors.Is(err, storage.ErrAlreadyStored):
		api.RespondWithError(w, r, api.NewMalformedRequestError(fmt.Sprintf("document %s has already been stored", id)))
		return
	case errors.Is(err, storage.ErrNotFound):
		api.RespondWithError(w, r, api.NewNotFoundError(fmt.Sprintf("no queued document with id %s", id)))
		return
	case err != nil:
		api.RespondWithError(w, r, api.WrapInternalError(err, "failed to store document"))
		return
	}

	logger.ContextWithLogAttrs(r.Context(), slog.String("document_id", id))
	api.RespondWithJSONPayload(w, http.StatusOK, api.StorageResponse{
		ID:   id,
		Key:  encrypted.EncryptedDocumentKey,
		Type: encrypted.EncryptedDocument.Type,
		TTL:  int64(h.ttl.Seconds()),
	})
}

// HandleGet godoc
//
//	@Summary		Get a stored document
//	@Description	Returns the encrypted document. Decrypt it with the key returned when it was stored.
//	@Tags			Documents
//	@Produce		json
//	@Param			x-api-key	header		string	true	"API key"
//	@Param			id			path		string	true	"Document id"
//	@Success		200			{object}	api.StoredDocumentResponse
//	@Failure		404			{object}	api.ErrorResponse
//	@Router			/storage/{id} [get]
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseDocumentID(r)
	if err != nil {
		api.RespondWithError(w, r, err)
		return
	}

	record, err := h.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && record.Queued()) {
		api.RespondWithError(w, r, api.NewNotFoundError(fmt.Sprintf("no document with id %s", id)))
		return
	}
	if err != nil {
		api.RespondWithError(w, r, api.WrapInternalError(err, "failed to read document"))
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, api.StoredDocumentResponse{Document: *record.Document})
}
