package server

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
)

// MessageYAML is the YAML representation of one logged message.
type MessageYAML struct {
	ID        int64  `yaml:"id"`
	Sender    string `yaml:"sender,omitempty"` // empty for system notices
	Body      string `yaml:"body"`
	CreatedAt string `yaml:"created_at"`
}

// HistoryExport wraps the exported message log.
type HistoryExport struct {
	Messages []MessageYAML `yaml:"messages"`
}

// ExportHistoryYAML exports the full message history as YAML.
func ExportHistoryYAML(st store.HistoryStore) ([]byte, error) {
	msgs, err := st.ListMessages(model.MessageFilters{})
	if err != nil {
		return nil, err
	}

	export := HistoryExport{}
	for _, m := range msgs {
		export.Messages = append(export.Messages, MessageYAML{
			ID:        m.ID,
			Sender:    m.Sender,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return yaml.Marshal(&export)
}
