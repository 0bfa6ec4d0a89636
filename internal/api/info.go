package api

import (
	"net/http"
)

// ServiceInfo describes the gateway's operational endpoints.
type ServiceInfo struct {
	Message   string           `json:"message"`
	Endpoints ServiceEndpoints `json:"endpoints"`
}

type ServiceEndpoints struct {
	Webhook string `json:"webhook"`
	Logs    string `json:"logs"`
}

// InfoHandler serves a fixed descriptor built from the primary channel.
func InfoHandler(primaryChannel string) http.HandlerFunc {
	info := ServiceInfo{
		Message: "Webhook gateway running",
		Endpoints: ServiceEndpoints{
			Webhook: "/webhook/" + primaryChannel,
			Logs:    "/logs",
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, info)
	}
}
