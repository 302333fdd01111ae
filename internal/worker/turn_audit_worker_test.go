package worker

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-playground/internal/model"
)

type memoryWriter struct {
	records []model.TurnRecord
	err     error
}

func (m *memoryWriter) Create(record *model.TurnRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *record)
	return nil
}

func TestTurnAuditWorkerHandle(t *testing.T) {
	writer := &memoryWriter{}
	w := NewTurnAuditWorker(nil, writer, "audit", nil)

	body, err := json.Marshal(model.TurnRecord{
		ID:        42,
		SessionID: "8b1e0c1e-0000-4000-8000-000000000001",
		Mode:      "chat",
		Role:      model.RoleUser,
		Content:   "hello",
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, w.Handle(body))
	require.Len(t, writer.records, 1)
	assert.Zero(t, writer.records[0].ID)
	assert.Equal(t, "hello", writer.records[0].Content)
	assert.Equal(t, "chat", writer.records[0].Mode)
}

func TestTurnAuditWorkerHandleRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "not json", body: "{", wantErr: nil},
		{name: "missing session", body: `{"role":"user","content":"x"}`, wantErr: ErrInvalidTurnRecord},
		{name: "missing role", body: `{"session_id":"abc","content":"x"}`, wantErr: ErrInvalidTurnRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &memoryWriter{}
			err := NewTurnAuditWorker(nil, writer, "audit", nil).Handle([]byte(tt.body))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, writer.records)
		})
	}
}

func TestTurnAuditWorkerHandleWriteFailure(t *testing.T) {
	writer := &memoryWriter{err: errors.New("connection refused")}
	err := NewTurnAuditWorker(nil, writer, "audit", nil).Handle([]byte(`{"session_id":"abc","role":"assistant","content":"x"}`))

	assert.ErrorContains(t, err, "persist turn record failed")
}
