package models

// ContactMessage is an enquiry left through the public contact form.
type ContactMessage struct {
	BaseModel `bson:",inline"`

	Name    string `gorm:"size:200;not null" bson:"name" json:"name"`
	Email   string `gorm:"size:255;not null;index" bson:"email" json:"email"`
	Phone   string `gorm:"size:50" bson:"phone,omitempty" json:"phone,omitempty"`
	Subject string `gorm:"size:255" bson:"subject,omitempty" json:"subject,omitempty"`
	Body    string `gorm:"type:text;not null" bson:"message" json:"message"`
}

// SubjectOrDefault is the subject shown back to the sender.
func (m *ContactMessage) SubjectOrDefault() string {
	if m.Subject == "" {
		return "General Inquiry"
	}
	return m.Subject
}
