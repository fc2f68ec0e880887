package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventPatientCreated = "PATIENT_CREATE"
	EventPatientUpdated = "PATIENT_UPDATE"
	EventPatientsSynced = "PATIENTS_SYNC"
)

// PatientEvent is published to the broker after a store mutation.
type PatientEvent struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
