package models

import "time"

// Slot is one schedulable lesson instance on a specific date.
// Capacity is nil when the sheet row carries no value of its own;
// the effective value then comes from the referenced template.
type Slot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Teacher     string  `json:"teacher"`
	Description string  `json:"description"`
	Date        string  `json:"date"`       // 2006-01-02
	StartTime   string  `json:"start_time"` // 15:04
	EndTime     string  `json:"end_time"`
	Price       int64   `json:"price"`
	Capacity    *int64  `json:"capacity,omitempty"`
	Color       string  `json:"color"`
	Public      bool    `json:"public"`
	Status      string  `json:"status"`
	TemplateID  string  `json:"template_id"`
	Guests      []Guest `json:"guests"`
}

// Template is a reusable default configuration for new slots.
// A slot references at most one template by ID; templates never
// reference each other.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Teacher     string `json:"teacher"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Capacity    *int64 `json:"capacity,omitempty"`
	Color       string `json:"color"`
	Public      bool   `json:"public"`
	Status      string `json:"status"`
}

// Guest is a reservation entry inside a slot. Its lifecycle is owned
// by the booking backend; the console only reads it and, at most,
// requests a force-cancel.
type Guest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
}

type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	VisitCount int64  `json:"visit_count"`
	Memo       string `json:"memo"`
}

type Settings struct {
	StudioName   string `json:"studio_name"`
	Concept      string `json:"concept"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email"`
	Facilities   string `json:"facilities"`
}

// Snapshot is the atomic read-only state fetched from the backend.
// It is replaced wholesale after every mutation, never edited in place.
type Snapshot struct {
	Slots     []Slot     `json:"slots"`
	Templates []Template `json:"templates"`
	Customers []Customer `json:"customers"`
	Settings  Settings   `json:"settings"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// SlotByID finds a slot in the snapshot by string-normalized ID.
func (s *Snapshot) SlotByID(id string) *Slot {
	for i := range s.Slots {
		if s.Slots[i].ID == id {
			return &s.Slots[i]
		}
	}
	return nil
}

// TemplateByID finds a template in the snapshot by string-normalized ID.
func (s *Snapshot) TemplateByID(id string) *Template {
	for i := range s.Templates {
		if s.Templates[i].ID == id {
			return &s.Templates[i]
		}
	}
	return nil
}

// CustomerByID finds a customer by ID, or nil.
func (s *Snapshot) CustomerByID(id string) *Customer {
	for i := range s.Customers {
		if s.Customers[i].ID == id {
			return &s.Customers[i]
		}
	}
	return nil
}

// AuditEntry is one row of the console's local operation log.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotInput carries the editable fields of a slot save request.
// SlotID empty means creation; Price/Capacity follow the same
// unset-vs-zero distinction as Slot.
type SlotInput struct {
	SlotID     string `json:"slot_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Price      int64  `json:"price"`
	Capacity   *int64 `json:"capacity,omitempty"`
	Color      string `json:"color"`
	Public     bool   `json:"public"`
	Name       string `json:"name"`
	Teacher    string `json:"teacher"`
	TemplateID string `json:"template_id"`
}

// TemplateInput carries the editable fields of a template save request.
type TemplateInput struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name"`
	Teacher     string `json:"teacher"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Capacity    *int64 `json:"capacity,omitempty"`
	Color       string `json:"color"`
	Public      bool   `json:"public"`
}
