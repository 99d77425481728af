// Package domain defines the persistence models of the property catalogue.
// These types are mapped with GORM and form the core data layer of the
// service.
package domain

import "time"

// Property is an immutable snapshot of a property row. Handlers never build
// one themselves; they only receive them from storage.
//
// Fields:
//   - ID: integer primary key.
//   - Address / City: location; City is indexed for filtering.
//   - Price: asking price in whole currency units.
//   - Description: free text.
//   - Year: build year, stored as text.
type Property struct {
	ID          int    `json:"id"          gorm:"primaryKey;autoIncrement"`
	Address     string `json:"address"     gorm:"type:varchar(120);not null"`
	City        string `json:"city"        gorm:"type:varchar(32);not null;index:idx_property_city"`
	Price       int    `json:"price"       gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	Year        string `json:"year"        gorm:"type:varchar(4);index:idx_property_year"`
}

// TableName returns the database table name for Property.
func (Property) TableName() string { return "property" }

// ToMap returns the plain mapping form used in responses.
func (p Property) ToMap() map[string]any {
	return map[string]any{
		"id":          p.ID,
		"address":     p.Address,
		"city":        p.City,
		"price":       p.Price,
		"description": p.Description,
		"year":        p.Year,
	}
}

// StatusHistory records every status a property went through. The current
// status of a property is the row with the greatest UpdateDate.
type StatusHistory struct {
	ID         int            `json:"id"          gorm:"primaryKey;autoIncrement"`
	PropertyID int            `json:"property_id" gorm:"not null;index:idx_status_history_property,priority:1"`
	StatusID   PropertyStatus `json:"status_id"   gorm:"not null"`
	UpdateDate time.Time      `json:"update_date" gorm:"not null;index:idx_status_history_property,priority:2"`

	// Property is the owning property. History is removed with it.
	Property Property `json:"-" gorm:"foreignKey:PropertyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for StatusHistory.
func (StatusHistory) TableName() string { return "status_history" }
