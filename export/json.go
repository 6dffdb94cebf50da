package export

import (
	"encoding/json"
	"io"

	"carechat/chat"
)

// JSONExporter exports sessions in JSON format (pretty-printed)
type JSONExporter struct{}

func (e *JSONExporter) Export(session *chat.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
