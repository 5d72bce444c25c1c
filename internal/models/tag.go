package models

// Tag represents a categorization tag for links.
//
// Names are case-sensitive and unique; tags are created lazily on first
// use and shared by reference across links.
type Tag struct {
	ID         string  `gorm:"primaryKey;size:100" json:"id"`
	Name       string  `gorm:"size:100;uniqueIndex" json:"name"`
	Confidence float64 `gorm:"default:0" json:"confidence,omitempty"`
	Count      int     `gorm:"default:0" json:"count"`

	Links []Link `gorm:"many2many:link_tags" json:"-"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
