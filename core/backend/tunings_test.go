package backend

import (
	"net/http"
	"strconv"
	"testing"
)

func TestTuningRoundTrip(t *testing.T) {
	u := createTestUser(t)
	car := createTestCar(t, u.FirebaseUserID)

	request := Tuning{
		CarID:       car.CarID,
		TuningName:  "coilover suspension",
		TuningPrice: 185000,
	}
	var created Tuning
	if _, err := testService.client.RawPost("/api/tunings", &request, &created); err != nil {
		t.Fatal(err)
	}
	if created.TuningID == 0 {
		t.Fatal("no tuning_id")
	}
	if created.TuningImageURL != nil {
		t.Fatalf("unexpected image url: %v", *created.TuningImageURL)
	}

	imageURL := "http://images.example.com/images/coilovers.jpg"
	created.TuningImageURL = &imageURL
	created.TuningPrice = 192500
	var updated Tuning
	if _, err := testService.client.RawPut("/api/tunings/"+strconv.FormatInt(created.TuningID, 10),
		&created, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.TuningImageURL == nil || *updated.TuningImageURL != imageURL {
		t.Fatalf("updated tuning differs: %+v", updated)
	}
	if updated.TuningPrice != 192500 {
		t.Fatalf("updated tuning price differs: %+v", updated)
	}

	if _, err := testService.client.RawDelete("/api/tunings/" + strconv.FormatInt(created.TuningID, 10)); err != nil {
		t.Fatal(err)
	}
	status, _ := testService.client.RawGetStatus("/api/tunings/"+strconv.FormatInt(created.TuningID, 10), nil)
	expectStatus(t, http.StatusNotFound, status, "get deleted tuning")
}

func TestTuningUnknownCar(t *testing.T) {
	request := Tuning{CarID: 999999, TuningName: "spoiler", TuningPrice: 30000}
	status, _ := testService.client.RawPostStatus("/api/tunings", &request, nil)
	expectStatus(t, http.StatusBadRequest, status, "tuning for unknown car")
}
