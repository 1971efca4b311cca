package record

import (
	"time"

	"github.com/studio-torajirou/kanrigamen/internal/models"
)

// Alias lists per logical field, canonical key first, then the Japanese
// column headers of older sheet generations.
var (
	slotIDKeys      = []string{"slotId", "枠ID", "id"}
	templateIDKeys  = []string{"packageId", "パッケージID", "id"}
	templateRefKeys = []string{"packageId", "パッケージID"}

	nameKeys     = []string{"lessonName", "レッスン名", "title"}
	teacherKeys  = []string{"teacherName", "先生名"}
	descKeys     = []string{"description", "レッスン内容"}
	dateKeys     = []string{"date", "日付"}
	startKeys    = []string{"startTime", "開始時刻", "start"}
	endKeys      = []string{"endTime", "終了時刻", "end"}
	priceKeys    = []string{"price", "料金"}
	capacityKeys = []string{"capacity", "定員"}
	colorKeys    = []string{"color", "カレンダー色", "標準色"}
	publicKeys   = []string{"isPublic", "公開設定", "公開状態"}
	statusKeys   = []string{"status", "状態"}

	guestIDKeys    = []string{"reservationId", "予約ID", "bookingId", "id"}
	guestNameKeys  = []string{"name", "氏名", "userName"}
	phoneKeys      = []string{"phone", "電話", "電話番号"}
	emailKeys      = []string{"email", "Email"}
	customerIDKeys = []string{"customerId", "顧客ID"}

	visitCountKeys = []string{"visitCount", "来店回数"}
	memoKeys       = []string{"memo", "備考"}

	studioNameKeys   = []string{"studioName", "スタジオ名"}
	conceptKeys      = []string{"concept", "紹介文"}
	addressKeys      = []string{"address", "住所"}
	contactEmailKeys = []string{"contactEmail", "お問い合わせメール"}
	facilitiesKeys   = []string{"facilities", "設備・サービス"}
)

// SlotFromMap builds a canonical slot from a raw backend row.
func SlotFromMap(rec map[string]any) models.Slot {
	return models.Slot{
		ID:          String(rec, slotIDKeys, ""),
		Name:        String(rec, nameKeys, ""),
		Teacher:     String(rec, teacherKeys, ""),
		Description: String(rec, descKeys, ""),
		Date:        String(rec, dateKeys, ""),
		StartTime:   String(rec, startKeys, ""),
		EndTime:     String(rec, endKeys, ""),
		Price:       Int64(rec, priceKeys, 0),
		Capacity:    Number(rec, capacityKeys),
		Color:       String(rec, colorKeys, models.DefaultColor),
		Public:      Flag(rec, publicKeys),
		Status:      String(rec, statusKeys, ""),
		TemplateID:  String(rec, templateRefKeys, ""),
		Guests:      guestsFromMap(rec),
	}
}

// TemplateFromMap builds a canonical template from a raw backend row.
func TemplateFromMap(rec map[string]any) models.Template {
	return models.Template{
		ID:          String(rec, templateIDKeys, ""),
		Name:        String(rec, nameKeys, ""),
		Teacher:     String(rec, teacherKeys, ""),
		Description: String(rec, descKeys, ""),
		Price:       Int64(rec, priceKeys, 0),
		Capacity:    Number(rec, capacityKeys),
		Color:       String(rec, colorKeys, models.DefaultColor),
		Public:      Flag(rec, publicKeys),
		Status:      String(rec, statusKeys, ""),
	}
}

// GuestFromMap builds a canonical guest entry from a raw backend row.
func GuestFromMap(rec map[string]any) models.Guest {
	return models.Guest{
		ID:         String(rec, guestIDKeys, ""),
		Name:       String(rec, guestNameKeys, ""),
		Phone:      String(rec, phoneKeys, ""),
		Email:      String(rec, emailKeys, ""),
		Status:     String(rec, statusKeys, ""),
		CustomerID: String(rec, customerIDKeys, ""),
	}
}

// CustomerFromMap builds a canonical customer from a raw backend row.
func CustomerFromMap(rec map[string]any) models.Customer {
	return models.Customer{
		ID:         String(rec, customerIDKeys, ""),
		Name:       String(rec, guestNameKeys, ""),
		Phone:      String(rec, phoneKeys, ""),
		VisitCount: Int64(rec, visitCountKeys, 0),
		Memo:       String(rec, memoKeys, ""),
	}
}

// SettingsFromMap builds the studio settings block.
func SettingsFromMap(rec map[string]any) models.Settings {
	return models.Settings{
		StudioName:   String(rec, studioNameKeys, ""),
		Concept:      String(rec, conceptKeys, ""),
		Address:      String(rec, addressKeys, ""),
		ContactEmail: String(rec, contactEmailKeys, ""),
		Facilities:   String(rec, facilitiesKeys, ""),
	}
}

// SnapshotFromPayload converts a full admin-init response body into a
// snapshot. Missing collections normalize to empty, never nil errors;
// the console favors degraded display over failure.
func SnapshotFromPayload(payload map[string]any, fetchedAt time.Time) *models.Snapshot {
	snap := &models.Snapshot{FetchedAt: fetchedAt}

	for _, rec := range listOfMaps(payload, "lessons") {
		snap.Slots = append(snap.Slots, SlotFromMap(rec))
	}
	for _, rec := range listOfMaps(payload, "packages") {
		snap.Templates = append(snap.Templates, TemplateFromMap(rec))
	}
	for _, rec := range listOfMaps(payload, "customers") {
		snap.Customers = append(snap.Customers, CustomerFromMap(rec))
	}
	if settings, ok := payload["settings"].(map[string]any); ok {
		snap.Settings = SettingsFromMap(settings)
	}

	return snap
}

func guestsFromMap(rec map[string]any) []models.Guest {
	raw := listOfMaps(rec, "guests")
	if len(raw) == 0 {
		return nil
	}
	guests := make([]models.Guest, 0, len(raw))
	for _, g := range raw {
		guests = append(guests, GuestFromMap(g))
	}
	return guests
}

func listOfMaps(rec map[string]any, key string) []map[string]any {
	if rec == nil {
		return nil
	}
	list, ok := rec[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
