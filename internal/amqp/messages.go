package amqp

import (
	"encoding/json"
	"time"
)

// Export formats understood by the worker.
const (
	FormatXLSX   = "xlsx"
	FormatSheets = "sheets"
)

// ReportExportMessage asks the worker to export one upload's statement.
// It carries only the upload id and format; the worker reloads the
// stored bytes and recomputes the statement itself.
type ReportExportMessage struct {
	UploadID    string    `json:"upload_id"`
	Format      string    `json:"format"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReportExportMessage creates an export request for one upload
func NewReportExportMessage(uploadID, format string) *ReportExportMessage {
	return &ReportExportMessage{
		UploadID:    uploadID,
		Format:      format,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON creates a message from JSON bytes
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
