package domain

import "time"

// completedAtLayouts are the timestamp formats the backend has been seen to emit.
var completedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Completion records one user finishing one chore. Completions are append-only.
type Completion struct {
	CompletionID  string  `json:"completion_id"`
	ChoreID       string  `json:"chore_id"`
	ChoreName     string  `json:"chore_name"`
	PointsEarned  int     `json:"points_earned"`
	CompletedAt   string  `json:"completed_at"`
	Comments      *string `json:"comments"`
	HasProof      bool    `json:"has_proof"`
	ProofFilename *string `json:"proof_filename,omitempty"`
}

// CompletedTime parses CompletedAt. The zero time and false are returned when
// the server sent a format we don't recognize.
func (c Completion) CompletedTime() (time.Time, bool) {
	for _, layout := range completedAtLayouts {
		if t, err := time.Parse(layout, c.CompletedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ProofFile returns the proof image filename when the completion has one.
func (c Completion) ProofFile() (string, bool) {
	if !c.HasProof || c.ProofFilename == nil || *c.ProofFilename == "" {
		return "", false
	}
	return *c.ProofFilename, true
}

// Attachment is a proof image to upload with a completion.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
