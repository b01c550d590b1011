package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the version and build information for the service
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func HandleVersion(version, buildTime, networks string) http.HandlerFunc {
	response := VersionResponse{
		Version:   version,
		BuildTime: buildTime,
		Service:   "verifier-server",
		Networks:  networks,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode version", http.StatusInternalServerError)
			return
		}
	}
}

type VersionResponse struct {
	Version   string `json:"version" example:"1.0.0"`
	BuildTime string `json:"build_time" example:"2024-01-28T10:00:00Z"`
	Service   string `json:"service" example:"verifier-server"`

	// comma separated list of the networks documents can be verified on
	Networks string `json:"networks" example:"mainnet,sepolia,matic,amoy"`
}
