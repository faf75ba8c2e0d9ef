package backend

import (
	"net/http"
	"strconv"
	"testing"
)

func TestFuelEfficiencyRoundTrip(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)
	date := testDate(t, "2024-07-15T18:30:00Z")

	request := FuelEfficiency{
		CarID:       car.CarID,
		FeDate:      date,
		FeAmount:    38.5,
		FeUnitPrice: 1.72,
		FeMileage:   45230.5,
	}
	var created FuelEfficiency
	if _, err := testService.client.RawPost("/api/fuel_efficiencies", &request, &created); err != nil {
		t.Fatal(err)
	}
	if created.FeID == 0 {
		t.Fatal("no fe_id")
	}
	if created.FeAmount != request.FeAmount || created.FeUnitPrice != request.FeUnitPrice ||
		created.FeMileage != request.FeMileage || !created.FeDate.Equal(date) {
		t.Fatalf("created row differs: %+v", created)
	}

	var read FuelEfficiency
	if _, err := testService.client.RawGet("/api/fuel_efficiencies/"+strconv.FormatInt(created.FeID, 10), &read); err != nil {
		t.Fatal(err)
	}
	if read.FeID != created.FeID || read.FeAmount != created.FeAmount {
		t.Fatalf("read row differs: %+v", read)
	}
}

func TestFuelEfficiencyPositivity(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)

	body := map[string]interface{}{
		"car_id":       car.CarID,
		"fe_date":      "2024-07-15T18:30:00Z",
		"fe_amount":    -5,
		"fe_unitprice": 1.72,
		"fe_mileage":   45230,
	}
	var envelope errorEnvelope
	status, err := testService.client.RawPostStatus("/api/fuel_efficiencies", body, &envelope)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, http.StatusBadRequest, status, "negative fe_amount")
	if len(envelope.Details) == 0 {
		t.Fatal("expected field-level error details")
	}

	// nothing was persisted
	var list []FuelEfficiency
	if _, err := testService.client.RawGet("/api/cars/"+strconv.FormatInt(car.CarID, 10)+"/fuel_efficiency", &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected row was persisted: %+v", list)
	}
}

func TestFuelEfficiencyUnknownCar(t *testing.T) {
	request := FuelEfficiency{
		CarID:       999999,
		FeDate:      testDate(t, "2024-07-15T18:30:00Z"),
		FeAmount:    30,
		FeUnitPrice: 1.6,
		FeMileage:   1000,
	}
	status, err := testService.client.RawPostStatus("/api/fuel_efficiencies", &request, nil)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, http.StatusBadRequest, status, "fuel efficiency for missing car")
}
