package models

// Department is a clinical department listed on the public site and used
// to route bookings.
type Department struct {
	BaseModel `bson:",inline"`

	Name        string `gorm:"uniqueIndex;size:100;not null" bson:"name" json:"name"`
	Description string `gorm:"type:text" bson:"description,omitempty" json:"description,omitempty"`
	Timing      string `gorm:"size:100" bson:"timing,omitempty" json:"timing,omitempty"`
	Icon        string `gorm:"size:50" bson:"icon,omitempty" json:"icon,omitempty"`
	Color       string `gorm:"size:30" bson:"color,omitempty" json:"color,omitempty"`
}
