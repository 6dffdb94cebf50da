package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"carechat/chat"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *chat.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(session)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
