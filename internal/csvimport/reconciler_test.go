package csvimport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atwonio16/noshowdentalclinic/internal/appointment"
	"github.com/atwonio16/noshowdentalclinic/internal/clinic"
)

type fakeStore struct {
	existing    []appointment.Appointment
	upserted    []appointment.UpsertRow
	canceledIDs []uuid.UUID
	gotLo       time.Time
	gotHi       time.Time
}

func (f *fakeStore) ListInRange(_ context.Context, _ uuid.UUID, lo, hi time.Time) ([]appointment.Appointment, error) {
	f.gotLo, f.gotHi = lo, hi
	return f.existing, nil
}

func (f *fakeStore) UpsertBatch(_ context.Context, rows []appointment.UpsertRow) error {
	f.upserted = append(f.upserted, rows...)
	return nil
}

func (f *fakeStore) MarkCanceledByPatient(_ context.Context, ids []uuid.UUID) error {
	f.canceledIDs = append(f.canceledIDs, ids...)
	return nil
}

func testClinic() *clinic.Clinic {
	return &clinic.Clinic{ID: uuid.New(), Name: "Clinica Zambet", Timezone: "Europe/Bucharest", ExportHour: 18, DeadlineHour: 9}
}

// Import runs at 2026-07-13 10:00 UTC; the horizon in Bucharest summer
// time is [2026-07-13 21:00 UTC, 2026-07-15 21:00 UTC).
func fixedNow() time.Time {
	return time.Date(2026, 7, 13, 10, 0, 0, 0, time.UTC)
}

func existingRow(ext string, startUTC time.Time, status appointment.Status) appointment.Appointment {
	return appointment.Appointment{
		ID:         uuid.New(),
		ExternalID: ext,
		StartAt:    startUTC,
		Status:     status,
	}
}

func TestImportReconcilesSnapshot(t *testing.T) {
	// 2026-07-14 09:00 local is 06:00 UTC.
	start := time.Date(2026, 7, 14, 6, 0, 0, 0, time.UTC)
	kept := existingRow("A1", start, appointment.StatusPending)
	missingPending := existingRow("A2", start, appointment.StatusPending)
	confirmed := existingRow("A3", start, appointment.StatusConfirmed)
	missingConfirmed := existingRow("A4", start, appointment.StatusConfirmed)

	store := &fakeStore{existing: []appointment.Appointment{kept, missingPending, confirmed, missingConfirmed}}
	r := &Reconciler{store: store, now: fixedNow}

	csvContent := strings.Join([]string{
		"appointment_id,start_datetime,phone,appointment_type,patient_name,provider_name,status",
		"A1,2026-07-14 09:00,0712345678,consultatie,Ion Popescu,,",
		"A3,2026-07-14 09:00,0712345678,detartraj,,Dr. Ionescu,pending",
		"A5,2026-07-14 09:00,0712345678,consultatie,,,programat",
	}, "\n")

	summary, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if summary.TotalRows != 3 || summary.UpsertedRows != 3 || summary.CanceledMissing != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	wantLo := time.Date(2026, 7, 13, 21, 0, 0, 0, time.UTC)
	wantHi := time.Date(2026, 7, 15, 21, 0, 0, 0, time.UTC)
	if !store.gotLo.Equal(wantLo) || !store.gotHi.Equal(wantHi) {
		t.Fatalf("horizon = [%v, %v), want [%v, %v)", store.gotLo, store.gotHi, wantLo, wantHi)
	}

	byExt := map[string]appointment.UpsertRow{}
	for _, row := range store.upserted {
		byExt[row.ExternalID] = row
	}
	if byExt["A1"].Status != appointment.StatusPending {
		t.Fatalf("A1 status = %s, want pending", byExt["A1"].Status)
	}
	// A confirmation recorded here survives the feed's pending.
	if byExt["A3"].Status != appointment.StatusConfirmed {
		t.Fatalf("A3 status = %s, want confirmed", byExt["A3"].Status)
	}
	if byExt["A5"].Status != appointment.StatusPending {
		t.Fatalf("A5 status = %s, want pending", byExt["A5"].Status)
	}
	if byExt["A1"].Phone != "+40712345678" {
		t.Fatalf("A1 phone = %s, want normalized", byExt["A1"].Phone)
	}
	if !byExt["A1"].StartAt.Equal(start) {
		t.Fatalf("A1 start = %v, want %v", byExt["A1"].StartAt, start)
	}
	if byExt["A1"].PatientName == nil || *byExt["A1"].PatientName != "Ion Popescu" {
		t.Fatalf("A1 patient name = %v", byExt["A1"].PatientName)
	}
	if byExt["A5"].PatientName != nil {
		t.Fatalf("empty patient name must be nil, got %v", byExt["A5"].PatientName)
	}

	// Only the missing pending appointment is canceled; the missing
	// confirmed one is left alone.
	if len(store.canceledIDs) != 1 || store.canceledIDs[0] != missingPending.ID {
		t.Fatalf("canceled ids = %v, want [%v]", store.canceledIDs, missingPending.ID)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	r := &Reconciler{store: store, now: fixedNow}

	csvContent := "appointment_id,start_datetime,phone,appointment_type\n" +
		"A1,2026-07-14 09:00,0712345678,consultatie\n"

	first, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	// Second import sees the row the first one wrote.
	store.existing = []appointment.Appointment{
		existingRow("A1", time.Date(2026, 7, 14, 6, 0, 0, 0, time.UTC), appointment.StatusPending),
	}
	second, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if first.UpsertedRows != second.UpsertedRows || second.CanceledMissing != 0 {
		t.Fatalf("re-import changed outcomes: first=%+v second=%+v", first, second)
	}
	if store.upserted[1].Status != appointment.StatusPending {
		t.Fatalf("re-imported status = %s, want pending", store.upserted[1].Status)
	}
}

func TestImportRejectsMissingColumns(t *testing.T) {
	store := &fakeStore{}
	r := &Reconciler{store: store, now: fixedNow}

	csvContent := "appointment_id,start_datetime,phone\nA1,2026-07-14 09:00,0712345678\n"
	_, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err == nil || !strings.Contains(err.Error(), "appointment_type") {
		t.Fatalf("expected missing column error, got %v", err)
	}
	if len(store.upserted) != 0 {
		t.Fatal("nothing may be written on a rejected snapshot")
	}
}

func TestImportRejectsRowWithMissingValues(t *testing.T) {
	store := &fakeStore{}
	r := &Reconciler{store: store, now: fixedNow}

	csvContent := "appointment_id,start_datetime,phone,appointment_type\n" +
		"A1,2026-07-14 09:00,,consultatie\n"
	_, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err == nil {
		t.Fatal("expected error for row with empty phone")
	}
	if len(store.upserted) != 0 {
		t.Fatal("nothing may be written on a rejected snapshot")
	}
}

func TestImportHandlesBOMAndPadding(t *testing.T) {
	store := &fakeStore{}
	r := &Reconciler{store: store, now: fixedNow}

	csvContent := "\ufeffappointment_id, start_datetime, phone, appointment_type\n" +
		" A1 , 2026-07-14 09:00 , 0712345678 , consultatie \n\n"
	summary, err := r.Import(context.Background(), testClinic(), strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.TotalRows != 1 || summary.UpsertedRows != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if store.upserted[0].ExternalID != "A1" {
		t.Fatalf("external id = %q", store.upserted[0].ExternalID)
	}
}
