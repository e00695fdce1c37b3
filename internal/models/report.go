package models

import (
	"fmt"
	"strings"
)

// ReportStatus tracks the review of a report by an administrator.
type ReportStatus string

const (
	ReportPending  ReportStatus = "Pending"
	ReportReady    ReportStatus = "Ready"
	ReportRejected ReportStatus = "Rejected"
)

// ParseReportStatus accepts any casing of a known status.
func ParseReportStatus(s string) (ReportStatus, error) {
	for _, st := range []ReportStatus{ReportPending, ReportReady, ReportRejected} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown report status %q", s)
}

// CanTransitionTo reports whether a review may move s to next. Only a
// pending report is reviewed, and only once.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	return s == ReportPending && (next == ReportReady || next == ReportRejected)
}

// Report is a document a doctor files for a patient. The file itself is
// stored elsewhere and FileURL points at it.
type Report struct {
	BaseModel `bson:",inline"`

	PatientID  string       `gorm:"size:36;index;not null" bson:"patient_id" json:"patientId"`
	DoctorID   string       `gorm:"size:36;index" bson:"doctor_id,omitempty" json:"doctorId,omitempty"`
	Title      string       `gorm:"size:255;not null" bson:"title" json:"title"`
	Department string       `gorm:"size:100" bson:"department,omitempty" json:"department,omitempty"`
	FileURL    string       `gorm:"size:1024;not null" bson:"file_url" json:"fileUrl"`
	Note       string       `gorm:"type:text" bson:"note,omitempty" json:"note,omitempty"`
	Status     ReportStatus `gorm:"size:20;default:'Pending';index" bson:"status" json:"status"`
}

// IsAvailable reports whether the patient may download the report.
func (r *Report) IsAvailable() bool {
	return r.Status == ReportReady
}
