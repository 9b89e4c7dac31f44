// Package history persists the full conversation list as a single JSON file.
//
// Every save rewrites the whole file. Load never fails: a missing or
// unreadable file yields an empty list so that startup is never blocked.
// A file that cannot be parsed is moved aside before anything overwrites it.
package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/longkey1/llmcomm/internal/util"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultFileName is the name of the history file inside the data directory.
	DefaultFileName = "history.json"

	// StateFileName holds session state kept next to the history file.
	StateFileName = "state.json"

	backupSuffix = ".bak"

	filePerm = 0644
	dirPerm  = 0755
)

// Store reads and writes the conversation list at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the history file.
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns where an unparseable history file is moved.
func (s *Store) BackupPath() string {
	return s.path + backupSuffix
}

// StatePath returns the location of the session state file.
func (s *Store) StatePath() string {
	return filepath.Join(filepath.Dir(s.path), StateFileName)
}

// record mirrors a persisted conversation. Messages is a pointer so that an
// absent field can be told apart from an empty one. Timestamps stay raw so
// that a malformed date only loses that date, not the whole file.
type record struct {
	ID         string             `json:"Id"`
	Title      string             `json:"Title"`
	Messages   *[]llmcomm.Message `json:"Messages"`
	CreatedAt  json.RawMessage    `json:"CreatedAt"`
	UpdatedAt  json.RawMessage    `json:"UpdatedAt"`
	Model      string             `json:"Model"`
	ModelsUsed []string           `json:"ModelsUsed"`
	ParentID   string             `json:"ParentId"`
}

// timeLayouts are tried in order when reading a persisted timestamp.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// legacyFile covers the object layouts written by earlier releases: a wrapper
// around the conversation list, or a single bare conversation.
type legacyFile struct {
	Conversations []record           `json:"conversations"`
	Messages      *[]llmcomm.Message `json:"messages"`
}

// LoadAll returns every stored conversation, repaired so that each has an ID,
// a non-blank title and a non-nil message list. Errors are logged and an
// empty list is returned.
func (s *Store) LoadAll() []*llmcomm.Conversation {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(&llmcomm.PersistenceError{Op: "read", Path: s.path, Err: err}).
				Warn("failed to read history, starting with an empty list")
		}
		return []*llmcomm.Conversation{}
	}

	records, err := decode(data)
	if err != nil {
		entry := log.WithError(&llmcomm.PersistenceError{Op: "parse", Path: s.path, Err: err})
		if renameErr := os.Rename(s.path, s.BackupPath()); renameErr != nil {
			entry.WithField("backup_error", renameErr).
				Warn("failed to parse history, starting with an empty list")
		} else {
			entry.WithField("backup", s.BackupPath()).
				Warn("failed to parse history, moved it aside and starting with an empty list")
		}
		return []*llmcomm.Conversation{}
	}

	conversations := make([]*llmcomm.Conversation, 0, len(records))
	for _, rec := range records {
		conversations = append(conversations, repair(rec))
	}

	log.WithField("path", s.path).Debugf("loaded %d conversations", len(conversations))
	return conversations
}

// SaveAll overwrites the history file with conversations. Errors are logged
// and otherwise ignored; the in-memory list stays authoritative.
func (s *Store) SaveAll(conversations []*llmcomm.Conversation) {
	if conversations == nil {
		conversations = []*llmcomm.Conversation{}
	}

	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		log.WithError(&llmcomm.PersistenceError{Op: "encode", Path: s.path, Err: err}).
			Warn("failed to serialize history")
		return
	}

	if err := util.AtomicWriteFile(s.path, data, filePerm, dirPerm); err != nil {
		log.WithError(&llmcomm.PersistenceError{Op: "write", Path: s.path, Err: err}).
			Warn("failed to save history")
		return
	}

	log.WithField("path", s.path).Debugf("saved %d conversations", len(conversations))
}

// decode accepts the current array layout and the legacy object layouts.
// Field names match case-insensitively.
func decode(data []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != '{' {
		var records []record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var legacy legacyFile
	if err := json.Unmarshal(trimmed, &legacy); err != nil {
		return nil, err
	}
	if legacy.Conversations != nil {
		return legacy.Conversations, nil
	}
	if legacy.Messages != nil {
		return []record{{Messages: legacy.Messages}}, nil
	}
	return nil, nil
}

func repair(rec record) *llmcomm.Conversation {
	conv := &llmcomm.Conversation{
		ID:         rec.ID,
		Title:      rec.Title,
		CreatedAt:  parseTime(rec.CreatedAt),
		UpdatedAt:  parseTime(rec.UpdatedAt),
		Model:      rec.Model,
		ModelsUsed: rec.ModelsUsed,
		ParentID:   rec.ParentID,
	}

	if rec.Messages != nil {
		conv.Messages = *rec.Messages
	}
	if conv.Messages == nil {
		conv.Messages = []llmcomm.Message{}
	}

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}

	if llmcomm.NormalizeTitle(conv.Title) != conv.Title {
		conv.Title = llmcomm.DeriveTitle(conv.Messages)
	}

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	return conv
}

// parseTime reads a JSON timestamp in any of timeLayouts. Anything else,
// including null and non-string values, yields the zero time.
func parseTime(raw json.RawMessage) time.Time {
	var text string
	if len(raw) == 0 || json.Unmarshal(raw, &text) != nil {
		return time.Time{}
	}
	text = strings.TrimSpace(text)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	return time.Time{}
}

type state struct {
	ActiveConversationID string `json:"active_conversation_id"`
}

// LoadActive returns the ID of the conversation that was current when the
// state was last saved, or "" if none was recorded.
func (s *Store) LoadActive() string {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(&llmcomm.PersistenceError{Op: "read", Path: s.StatePath(), Err: err}).
				Warn("failed to read session state")
		}
		return ""
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.WithError(&llmcomm.PersistenceError{Op: "parse", Path: s.StatePath(), Err: err}).
			Warn("failed to parse session state")
		return ""
	}
	return st.ActiveConversationID
}

// SaveActive records id as the current conversation. Errors are logged.
func (s *Store) SaveActive(id string) {
	data, err := json.MarshalIndent(state{ActiveConversationID: id}, "", "  ")
	if err != nil {
		log.WithError(&llmcomm.PersistenceError{Op: "encode", Path: s.StatePath(), Err: err}).
			Warn("failed to serialize session state")
		return
	}
	if err := util.AtomicWriteFile(s.StatePath(), data, filePerm, dirPerm); err != nil {
		log.WithError(&llmcomm.PersistenceError{Op: "write", Path: s.StatePath(), Err: err}).
			Warn("failed to save session state")
	}
}
