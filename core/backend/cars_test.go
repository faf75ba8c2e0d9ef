package backend

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type carRequest struct {
	Car            Car    `json:"car"`
	FirebaseUserID string `json:"firebase_user_id,omitempty"`
}

func TestCarCreateAndRead(t *testing.T) {
	u := createTestUser(t)
	request := carRequest{
		Car: Car{
			CarName:       "Roadster",
			CarModelNum:   "ND5RC",
			CarColor:      "soul red",
			CarMileage:    42000,
			CarIsFlooding: false,
			CarIsSmoked:   true,
		},
		FirebaseUserID: u.FirebaseUserID,
	}
	var car Car
	if _, err := testService.client.RawPost("/api/cars", &request, &car); err != nil {
		t.Fatal(err)
	}
	if car.CarID == 0 {
		t.Fatal("no car_id")
	}
	if car.CarName != request.Car.CarName || car.CarModelNum != request.Car.CarModelNum ||
		car.CarColor != request.Car.CarColor || car.CarMileage != request.Car.CarMileage ||
		car.CarIsFlooding != request.Car.CarIsFlooding || car.CarIsSmoked != request.Car.CarIsSmoked {
		t.Fatalf("created car differs: %+v", car)
	}

	var read Car
	if _, err := testService.client.RawGet("/api/cars/"+strconv.FormatInt(car.CarID, 10), &read); err != nil {
		t.Fatal(err)
	}
	if read != car {
		t.Fatalf("read car differs: %+v", read)
	}
}

func TestCarCreateUnknownOwner(t *testing.T) {
	request := carRequest{
		Car:            Car{CarName: "Ghost", CarModelNum: "X", CarColor: "white", CarMileage: 1},
		FirebaseUserID: "no-such-user",
	}
	status, err := testService.client.RawPostStatus("/api/cars", &request, nil)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, http.StatusBadRequest, status, "car with unknown owner")

	// the rejected car must not exist anywhere
	var cars []Car
	if _, err := testService.client.RawGet("/api/cars", &cars); err != nil {
		t.Fatal(err)
	}
	for _, c := range cars {
		if c.CarName == "Ghost" {
			t.Fatal("orphaned car was persisted")
		}
	}
}

func TestCarValidation(t *testing.T) {
	u := createTestUser(t)
	request := carRequest{
		Car:            Car{CarName: "Broken", CarModelNum: "B", CarColor: "blue", CarMileage: -1},
		FirebaseUserID: u.FirebaseUserID,
	}
	status, err := testService.client.RawPostStatus("/api/cars", &request, nil)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, http.StatusBadRequest, status, "negative mileage")
}

func TestCarUpdate(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)

	car.CarColor = "black"
	car.CarMileage = 120000
	car.CarIsFlooding = true
	var updated Car
	if _, err := testService.client.RawPut("/api/cars/"+strconv.FormatInt(car.CarID, 10),
		&carRequest{Car: car}, &updated); err != nil {
		t.Fatal(err)
	}
	if updated != car {
		t.Fatalf("updated car differs: %+v", updated)
	}
}

// the update is a full replace, car_image_url included
func TestCarUpdateImageURL(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)

	imageURL := "http://images.example.com/images/side.png"
	car.CarImageURL = &imageURL
	var updated Car
	if _, err := testService.client.RawPut("/api/cars/"+strconv.FormatInt(car.CarID, 10),
		&carRequest{Car: car}, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.CarImageURL == nil || *updated.CarImageURL != imageURL {
		t.Fatalf("image url not persisted: %+v", updated)
	}

	// an explicit null clears the stored url
	car.CarImageURL = nil
	if _, err := testService.client.RawPut("/api/cars/"+strconv.FormatInt(car.CarID, 10),
		&carRequest{Car: car}, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.CarImageURL != nil {
		t.Fatalf("image url not cleared: %+v", updated)
	}
}

func TestCarInvalidIdentifier(t *testing.T) {
	status, _ := testService.client.RawGetStatus("/api/cars/not-a-number", nil)
	expectStatus(t, http.StatusBadRequest, status, "non-numeric car_id")
}

func TestCarMissing(t *testing.T) {
	status, _ := testService.client.RawGetStatus("/api/cars/999999", nil)
	expectStatus(t, http.StatusNotFound, status, "get missing car")
	status, _ = testService.client.RawDeleteStatus("/api/cars/999999")
	expectStatus(t, http.StatusNotFound, status, "delete missing car")
}

func TestCarCascadeDelete(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)
	carID := strconv.FormatInt(car.CarID, 10)

	date := testDate(t, "2024-05-01T10:00:00Z")
	var accident Accident
	if _, err := testService.client.RawPost("/api/accidents",
		&Accident{CarID: car.CarID, AccidentDate: date, AccidentDescription: "rear-ended"}, &accident); err != nil {
		t.Fatal(err)
	}
	var fe FuelEfficiency
	if _, err := testService.client.RawPost("/api/fuel_efficiencies",
		&FuelEfficiency{CarID: car.CarID, FeDate: date, FeAmount: 40, FeUnitPrice: 1.7, FeMileage: 42100}, &fe); err != nil {
		t.Fatal(err)
	}
	var maint Maintenance
	if _, err := testService.client.RawPost("/api/maintenances",
		&Maintenance{CarID: car.CarID, MaintType: "OilChange", MaintDate: date, MaintDescription: "5W-30"}, &maint); err != nil {
		t.Fatal(err)
	}
	var tuning Tuning
	if _, err := testService.client.RawPost("/api/tunings",
		&Tuning{CarID: car.CarID, TuningName: "coilovers", TuningPrice: 1500}, &tuning); err != nil {
		t.Fatal(err)
	}
	var pi PeriodicInspection
	if _, err := testService.client.RawPost("/api/periodic_inspections",
		&PeriodicInspection{CarID: car.CarID, PiName: "12 month check", PiDate: date, PiNextDate: date.AddDate(1, 0, 0)}, &pi); err != nil {
		t.Fatal(err)
	}

	if _, err := testService.client.RawDelete("/api/cars/" + carID); err != nil {
		t.Fatal(err)
	}

	status, _ := testService.client.RawGetStatus("/api/cars/"+carID, nil)
	expectStatus(t, http.StatusNotFound, status, "get deleted car")

	for _, path := range []string{
		"/api/accidents/" + strconv.FormatInt(accident.AccidentID, 10),
		"/api/fuel_efficiencies/" + strconv.FormatInt(fe.FeID, 10),
		"/api/maintenances/" + strconv.FormatInt(maint.MaintID, 10),
		"/api/tunings/" + strconv.FormatInt(tuning.TuningID, 10),
		"/api/periodic_inspections/" + strconv.FormatInt(pi.PiID, 10),
	} {
		status, _ := testService.client.RawGetStatus(path, nil)
		expectStatus(t, http.StatusNotFound, status, "child row of deleted car: "+path)
	}

	// the ownership row is gone as well
	var cars []Car
	if _, err := testService.client.RawGet("/api/users/"+u.FirebaseUserID+"/cars", &cars); err != nil {
		t.Fatal(err)
	}
	if len(cars) != 0 {
		t.Fatalf("expected no cars for owner, got %+v", cars)
	}
}

func TestCarChildListings(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)
	carID := strconv.FormatInt(car.CarID, 10)
	date := testDate(t, "2024-06-01T08:00:00Z")

	for i := 0; i < 2; i++ {
		if _, err := testService.client.RawPost("/api/tunings",
			&Tuning{CarID: car.CarID, TuningName: "exhaust", TuningPrice: 700 + i}, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := testService.client.RawPost("/api/maintenances",
		&Maintenance{CarID: car.CarID, MaintType: "CarWash", MaintDate: date, MaintDescription: ""}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := testService.client.RawPost("/api/fuel_efficiencies",
		&FuelEfficiency{CarID: car.CarID, FeDate: date, FeAmount: 35, FeUnitPrice: 1.65, FeMileage: 43000}, nil); err != nil {
		t.Fatal(err)
	}

	var tunings []Tuning
	if _, err := testService.client.RawGet("/api/cars/"+carID+"/tuning", &tunings); err != nil {
		t.Fatal(err)
	}
	if len(tunings) != 2 {
		t.Fatalf("expected 2 tunings, got %d", len(tunings))
	}
	var maintenances []Maintenance
	if _, err := testService.client.RawGet("/api/cars/"+carID+"/maintenance", &maintenances); err != nil {
		t.Fatal(err)
	}
	if len(maintenances) != 1 {
		t.Fatalf("expected 1 maintenance, got %d", len(maintenances))
	}
	var fes []FuelEfficiency
	if _, err := testService.client.RawGet("/api/cars/"+carID+"/fuel_efficiency", &fes); err != nil {
		t.Fatal(err)
	}
	if len(fes) != 1 {
		t.Fatalf("expected 1 fuel efficiency, got %d", len(fes))
	}

	// an existing car without entries yields empty lists, not 404
	other := createTestCar(t, u.FirebaseUserID)
	var none []Accident
	if _, err := testService.client.RawGet("/api/cars/"+strconv.FormatInt(other.CarID, 10)+"/accident", &none); err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no accidents, got %+v", none)
	}

	status, _ := testService.client.RawGetStatus("/api/cars/999999/tuning", nil)
	expectStatus(t, http.StatusNotFound, status, "child listing of missing car")
}

func TestCarImage(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)
	carID := strconv.FormatInt(car.CarID, 10)

	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	var updated Car
	status, err := testService.client.PutMultipart("/api/cars/"+carID+"/image", "front.png", data, &updated)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, http.StatusOK, status, "set car image")
	if updated.CarImageURL == nil || !strings.HasSuffix(*updated.CarImageURL, "images/front.png") {
		t.Fatalf("unexpected image url %v", updated.CarImageURL)
	}
	stored := filepath.Join(testService.imageDir, "images", "front.png")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	if _, err := testService.client.RawDelete("/api/cars/" + carID + "/image"); err != nil {
		t.Fatal(err)
	}
	var read Car
	if _, err := testService.client.RawGet("/api/cars/"+carID, &read); err != nil {
		t.Fatal(err)
	}
	if read.CarImageURL != nil {
		t.Fatalf("image url not cleared: %v", *read.CarImageURL)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Fatal("stored object not deleted")
	}
}
