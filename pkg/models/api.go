package models

// Client API types
type CreateClientRequest struct {
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress,omitempty"`
}

type DeleteClientResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type QRCodeResponse struct {
	QRCode string `json:"qrCode"`
}

// Reconciliation API types
type SyncResponse struct {
	Success     bool `json:"success"`
	ClientCount int  `json:"clientCount"`
}

type LegacyClientsResponse struct {
	LegacyClients []LegacyClient `json:"legacyClients"`
	Count         int            `json:"count"`
}

type MigrateResponse struct {
	Success       bool `json:"success"`
	MigratedCount int  `json:"migratedCount"`
}

// Settings API types
type SetSettingRequest struct {
	Value *string `json:"value"`
}

type SettingResponse struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
