// Package session persists onboarding state between CLI runs so interrupted
// workflows resume where they stopped instead of redoing remote work.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/idrcli/awsidr/internal/alarm"
)

const stateFileVersion = "1"

// Step names tracked by onboarding progress.
const (
	StepContacts     = "contacts"
	StepDiscovery    = "resource-discovery"
	StepAlarms       = "alarm-creation"
	StepSupportCase  = "support-case"
	StepCaseFollowUp = "support-case-follow-up"
)

// StepStatus is the lifecycle of one onboarding step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepComplete StepStatus = "complete"
	StepFailed   StepStatus = "failed"
)

// Contact is an incident notification contact for the workload.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// AlarmRecord remembers an alarm this tool created or ingested.
type AlarmRecord struct {
	Name        string    `json:"name"`
	Region      string    `json:"region"`
	ResourceARN string    `json:"resourceArn,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// State is everything a workload onboarding accumulates across runs.
type State struct {
	Version       string                `json:"version"`
	AccountID     string                `json:"accountId,omitempty"`
	WorkloadName  string                `json:"workloadName"`
	TagKey        string                `json:"tagKey,omitempty"`
	TagValue      string                `json:"tagValue,omitempty"`
	Contacts      []Contact             `json:"contacts,omitempty"`
	Resources     []alarm.ResourceArn   `json:"resources,omitempty"`
	Alarms        []AlarmRecord         `json:"alarms,omitempty"`
	EdgeRegions   map[string][]string   `json:"edgeRegions,omitempty"`
	SupportCaseID string                `json:"supportCaseId,omitempty"`
	Steps         map[string]StepStatus `json:"steps,omitempty"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// MarkStep records a step outcome.
func (s *State) MarkStep(name string, status StepStatus) {
	if s.Steps == nil {
		s.Steps = make(map[string]StepStatus)
	}
	s.Steps[name] = status
}

// StepDone reports whether a step already completed.
func (s *State) StepDone(name string) bool {
	return s.Steps[name] == StepComplete
}

// RecordAlarm appends an alarm record, replacing any earlier record with the
// same name and region.
func (s *State) RecordAlarm(rec AlarmRecord) {
	for i, existing := range s.Alarms {
		if existing.Name == rec.Name && existing.Region == rec.Region {
			s.Alarms[i] = rec
			return
		}
	}
	s.Alarms = append(s.Alarms, rec)
}

// AlarmNames returns the names of every recorded alarm.
func (s *State) AlarmNames() []string {
	names := make([]string, 0, len(s.Alarms))
	for _, rec := range s.Alarms {
		names = append(names, rec.Name)
	}
	return names
}

// SetEdgeRegions remembers the regions an edge function's alarms target so
// re-runs reuse them instead of re-scanning.
func (s *State) SetEdgeRegions(functionARN string, regions []string) {
	if s.EdgeRegions == nil {
		s.EdgeRegions = make(map[string][]string)
	}
	s.EdgeRegions[functionARN] = regions
}

// CachedEdgeRegions returns the remembered regions for a function, or nil.
func (s *State) CachedEdgeRegions(functionARN string) []string {
	return s.EdgeRegions[functionARN]
}

// Store reads and writes workload state files under the tool's home
// directory, one file per workload.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore opens the default state directory, creating it if needed.
func NewStore(log *slog.Logger) (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(home, ".awsidr"), log)
}

// NewStoreAt opens a state directory at an explicit path.
func NewStoreAt(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (st *Store) path(workload string) string {
	return filepath.Join(st.dir, workload+".json")
}

// Load returns the saved state for a workload, or a fresh one when no file
// exists yet.
func (st *Store) Load(workload string) (*State, error) {
	data, err := os.ReadFile(st.path(workload))
	if errors.Is(err, fs.ErrNotExist) {
		st.log.Info("No saved state, starting fresh", "workload", workload)
		return &State{Version: stateFileVersion, WorkloadName: workload}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state for %s: %w", workload, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state for %s: %w", workload, err)
	}
	st.log.Info("Resumed saved state", "workload", workload, "updated_at", s.UpdatedAt)
	return &s, nil
}

// Save writes the state atomically.
func (st *Store) Save(s *State) error {
	s.Version = stateFileVersion
	s.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", s.WorkloadName, err)
	}

	target := st.path(s.WorkloadName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state for %s: %w", s.WorkloadName, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace state for %s: %w", s.WorkloadName, err)
	}
	return nil
}

// Serialize returns the state as indented JSON, used when attaching state
// to a support case.
func (s *State) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state for %s: %w", s.WorkloadName, err)
	}
	return data, nil
}
