package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage is one stop in the content pipeline.
type Stage string

const (
	StageScript  Stage = "script"
	StageDraft   Stage = "draft"
	StageFinal   Stage = "final"
	StageInsight Stage = "insight"
)

// MaxRevisionRounds caps the rounds a revisioned stage accepts.
const MaxRevisionRounds = 3

var RevisionedStages = []Stage{StageScript, StageDraft, StageFinal}

var AllStages = []Stage{StageScript, StageDraft, StageFinal, StageInsight}

// ParseStage accepts stage names case-insensitively.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStages {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// HasRevisions reports whether the stage keeps a bounded round history.
// Insight is a single overwritable slot.
func (s Stage) HasRevisions() bool {
	return s == StageScript || s == StageDraft || s == StageFinal
}

type RoundStatus string

const (
	RoundPending           RoundStatus = "pending"
	RoundApproved          RoundStatus = "approved"
	RoundRevisionRequested RoundStatus = "revision_requested"
)

type Round struct {
	Round       int         `json:"round"`
	Link        string      `json:"link"`
	Notes       string      `json:"notes"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Status      RoundStatus `json:"status"`
	Feedback    *string     `json:"feedback"`
	ReviewedAt  *time.Time  `json:"reviewed_at"`
}

// RevisionHistory is the round list of the script, draft and final stages.
// Only the last round is ever mutated; earlier rounds are frozen.
type RevisionHistory struct {
	Rounds []Round
}

func (h *RevisionHistory) Len() int { return len(h.Rounds) }

// Latest returns the last round, or nil when nothing was submitted yet.
func (h *RevisionHistory) Latest() *Round {
	if len(h.Rounds) == 0 {
		return nil
	}
	return &h.Rounds[len(h.Rounds)-1]
}

// Append adds a pending round. It fails once MaxRevisionRounds rounds exist.
func (h *RevisionHistory) Append(link, notes string, now time.Time) (Round, error) {
	if len(h.Rounds) >= MaxRevisionRounds {
		return Round{}, fmt.Errorf("%w (%d)", ErrMaxAttemptsExceeded, MaxRevisionRounds)
	}
	r := Round{
		Round:       len(h.Rounds) + 1,
		Link:        link,
		Notes:       notes,
		SubmittedAt: now.UTC(),
		Status:      RoundPending,
	}
	h.Rounds = append(h.Rounds, r)
	return r, nil
}

// Review sets the outcome of the last round.
func (h *RevisionHistory) Review(status RoundStatus, feedback string, now time.Time) error {
	last := h.Latest()
	if last == nil {
		return ErrNoSubmission
	}
	reviewed := now.UTC()
	fb := feedback
	last.Status = status
	last.Feedback = &fb
	last.ReviewedAt = &reviewed
	return nil
}

func (h RevisionHistory) clone() RevisionHistory {
	if h.Rounds == nil {
		return RevisionHistory{}
	}
	out := make([]Round, len(h.Rounds))
	for i, r := range h.Rounds {
		if r.Feedback != nil {
			fb := *r.Feedback
			r.Feedback = &fb
		}
		if r.ReviewedAt != nil {
			t := *r.ReviewedAt
			r.ReviewedAt = &t
		}
		out[i] = r
	}
	return RevisionHistory{Rounds: out}
}

func (h RevisionHistory) MarshalJSON() ([]byte, error) {
	if h.Rounds == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.Rounds)
}

// UnmarshalJSON accepts a list of rounds, or a single legacy round object.
func (h *RevisionHistory) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		h.Rounds = nil
		return nil
	}
	if data[0] == '{' {
		var single Round
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if single.Round == 0 {
			single.Round = 1
		}
		h.Rounds = []Round{single}
		return nil
	}
	return json.Unmarshal(data, &h.Rounds)
}

// SingleSlotSubmission is the insight record: one active submission,
// overwritten on resubmission, with no history and no attempt cap.
type SingleSlotSubmission struct {
	Image       string     `json:"image,omitempty"`
	Files       []string   `json:"files,omitempty"`
	Note        string     `json:"note,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
}

func (s *SingleSlotSubmission) Submit(image string, files []string, note string, now time.Time) {
	t := now.UTC()
	s.Image = image
	s.Files = append([]string(nil), files...)
	s.Note = note
	s.SubmittedAt = &t
	s.Feedback = ""
}

func (s *SingleSlotSubmission) Review(feedback string) {
	s.Feedback = feedback
}

func (s SingleSlotSubmission) IsEmpty() bool {
	return s.SubmittedAt == nil && s.Image == "" && len(s.Files) == 0
}

func (s SingleSlotSubmission) clone() SingleSlotSubmission {
	out := s
	out.Files = append([]string(nil), s.Files...)
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}

// Submissions is the revision ledger of one application, keyed by stage.
// Script, draft and final carry a RevisionHistory; insight lives in its own slot.
type Submissions struct {
	Script RevisionHistory
	Draft  RevisionHistory
	Final  RevisionHistory
}

// History returns the round list for a revisioned stage.
func (s *Submissions) History(stage Stage) (*RevisionHistory, error) {
	switch stage {
	case StageScript:
		return &s.Script, nil
	case StageDraft:
		return &s.Draft, nil
	case StageFinal:
		return &s.Final, nil
	default:
		return nil, fmt.Errorf("%w: %q has no revision history", ErrInvalidStage, stage)
	}
}

func (s Submissions) clone() Submissions {
	return Submissions{
		Script: s.Script.clone(),
		Draft:  s.Draft.clone(),
		Final:  s.Final.clone(),
	}
}

// MarshalJSON writes the stage map, omitting stages with no rounds.
func (s Submissions) MarshalJSON() ([]byte, error) {
	out := make(map[Stage]RevisionHistory, 3)
	for _, st := range RevisionedStages {
		h, _ := s.History(st)
		if h.Len() > 0 {
			out[st] = *h
		}
	}
	return json.Marshal(out)
}

func (s *Submissions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Submissions{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Submissions{}
	for _, st := range RevisionedStages {
		msg, ok := raw[string(st)]
		if !ok {
			continue
		}
		h, _ := s.History(st)
		if err := json.Unmarshal(msg, h); err != nil {
			return fmt.Errorf("submission_data.%s: %w", st, err)
		}
	}
	return nil
}
