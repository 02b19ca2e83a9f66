package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/datakeep/ingest-core/internal/ingest"
)

// fileRequest carries the fields common to preview and import.
type fileRequest struct {
	UserOwner    string `json:"userOwner"`
	ProjectID    string `json:"projectId"`
	DataSourceID string `json:"dataSourceId"`
}

// importRequest adds the import settings. settingsLoad is accepted but
// currently unused; it is a reserved extension point.
type importRequest struct {
	fileRequest
	SettingsLoad json.RawMessage       `json:"settingsLoad"`
	SettingsSave ingest.ImportSettings `json:"settingsSave"`
}

func (f fileRequest) parse() (userID, projectID, sourceID uuid.UUID, err error) {
	if userID, err = uuid.Parse(f.UserOwner); err != nil {
		return
	}
	if projectID, err = uuid.Parse(f.ProjectID); err != nil {
		return
	}
	sourceID, err = uuid.Parse(f.DataSourceID)
	return
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body fileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	userID, projectID, sourceID, err := body.parse()
	if err != nil {
		badRequest(w, "invalid id: "+err.Error())
		return
	}

	result, err := s.files.Preview(r.Context(), ingest.PreviewRequest{
		UserID:    userID,
		ProjectID: projectID,
		SourceID:  sourceID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, previewPayload{result.Sheets})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	userID, projectID, sourceID, err := body.parse()
	if err != nil {
		badRequest(w, "invalid id: "+err.Error())
		return
	}

	result, err := s.files.Import(r.Context(), ingest.ImportRequest{
		UserID:    userID,
		ProjectID: projectID,
		SourceID:  sourceID,
		Load:      body.SettingsLoad,
		Settings:  body.SettingsSave,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// previewPayload marshals sheet previews as a JSON object keyed by sheet
// name, preserving reader order, which map-based marshalling would not.
type previewPayload struct {
	sheets []ingest.SheetPreview
}

func (p previewPayload) MarshalJSON() ([]byte, error) {
	type sheetBody struct {
		Headers []string `json:"headers"`
		Data    [][]any  `json:"data"`
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, sheet := range p.sheets {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sheet.Name)
		if err != nil {
			return nil, err
		}
		rows := sheet.Rows
		if rows == nil {
			rows = [][]any{}
		}
		headers := sheet.Headers
		if headers == nil {
			headers = []string{}
		}
		val, err := json.Marshal(sheetBody{Headers: headers, Data: rows})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
