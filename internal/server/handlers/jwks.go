package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// HandleJWKS godoc
//
//	@Summary		Get JWK set
//	@Description	Returns the public keys used to sign verification receipts.
//	@Description
//	@Description	The set is empty when the server has no receipt signing key.
//	@Description	Receipts are Ed25519 JWS tokens and carry the thumbprint of the signing key in the kid header.
//	@Tags			Common
//
//	@Success		200	{object}	JWKSResponse	"JWK set"
//
//	@Router			/.well-known/jwks.json [get]
func HandleJWKS(jwkSet jwk.Set) http.HandlerFunc {
	if jwkSet == nil {
		jwkSet = jwk.NewSet()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if err := json.NewEncoder(w).Encode(jwkSet); err != nil {
			http.Error(w, "Failed to encode JWK set", http.StatusInternalServerError)
			return
		}
	}
}

// JWKSResponse is used for swaggo documentation as swaggo doesn't support the jwk.Set interface type.
type JWKSResponse struct {
	Keys []map[string]any `json:"keys"`
}
