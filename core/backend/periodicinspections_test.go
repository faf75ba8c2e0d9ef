package backend

import (
	"net/http"
	"strconv"
	"testing"
)

func TestPeriodicInspectionRoundTrip(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)

	request := PeriodicInspection{
		CarID:      car.CarID,
		PiName:     "12-month inspection",
		PiDate:     testDate(t, "2024-04-01T09:00:00Z"),
		PiNextDate: testDate(t, "2025-04-01T09:00:00Z"),
	}
	var created PeriodicInspection
	if _, err := testService.client.RawPost("/api/periodic_inspections", &request, &created); err != nil {
		t.Fatal(err)
	}
	if created.PiID == 0 {
		t.Fatal("no pi_id")
	}
	if !created.PiNextDate.Equal(request.PiNextDate) {
		t.Fatalf("created inspection differs: %+v", created)
	}

	created.PiName = "12-month inspection (rescheduled)"
	created.PiDate = testDate(t, "2024-04-15T09:00:00Z")
	var updated PeriodicInspection
	if _, err := testService.client.RawPut("/api/periodic_inspections/"+strconv.FormatInt(created.PiID, 10),
		&created, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.PiName != created.PiName || !updated.PiDate.Equal(created.PiDate) {
		t.Fatalf("updated inspection differs: %+v", updated)
	}

	if _, err := testService.client.RawDelete("/api/periodic_inspections/" + strconv.FormatInt(created.PiID, 10)); err != nil {
		t.Fatal(err)
	}
	status, _ := testService.client.RawGetStatus("/api/periodic_inspections/"+strconv.FormatInt(created.PiID, 10), nil)
	expectStatus(t, http.StatusNotFound, status, "get deleted periodic inspection")
}

func TestPeriodicInspectionUnknownCar(t *testing.T) {
	request := PeriodicInspection{
		CarID:      999999,
		PiName:     "24-month inspection",
		PiDate:     testDate(t, "2024-04-01T09:00:00Z"),
		PiNextDate: testDate(t, "2026-04-01T09:00:00Z"),
	}
	status, _ := testService.client.RawPostStatus("/api/periodic_inspections", &request, nil)
	expectStatus(t, http.StatusBadRequest, status, "periodic inspection for unknown car")
}
