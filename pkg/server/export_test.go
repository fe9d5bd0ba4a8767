package server

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
)

func TestExportHistoryYAML(t *testing.T) {
	st := store.NewMemoryWithClock(func() time.Time { return testClock })

	for _, m := range []model.Message{
		{Sender: "alice", Body: "hello"},
		{Sender: "", Body: "*** bob has joined the chat room. ***"},
	} {
		m := m
		if err := st.AppendMessage(&m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	data, err := ExportHistoryYAML(st)
	if err != nil {
		t.Fatalf("ExportHistoryYAML: %v", err)
	}

	var export HistoryExport
	if err := yaml.Unmarshal(data, &export); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(export.Messages) != 2 {
		t.Fatalf("messages: want 2, got %d", len(export.Messages))
	}
	if export.Messages[0].Sender != "alice" || export.Messages[0].Body != "hello" {
		t.Fatalf("first message: got %+v", export.Messages[0])
	}
	if export.Messages[1].Sender != "" {
		t.Fatalf("system notice should have empty sender: %+v", export.Messages[1])
	}
	if export.Messages[1].CreatedAt != testClock.Format(time.RFC3339) {
		t.Fatalf("created_at: want %s, got %s", testClock.Format(time.RFC3339), export.Messages[1].CreatedAt)
	}
}

func TestExportHistoryYAMLEmpty(t *testing.T) {
	data, err := ExportHistoryYAML(store.NewMemory())
	if err != nil {
		t.Fatalf("ExportHistoryYAML: %v", err)
	}
	var export HistoryExport
	if err := yaml.Unmarshal(data, &export); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(export.Messages) != 0 {
		t.Fatalf("want empty export, got %+v", export.Messages)
	}
}
