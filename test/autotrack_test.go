package test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/autotrack-work/backend/core/backend"
)

type AutoTrackTestSuite struct {
	IntegrationTestSuite
}

func TestAutoTrackTestSuite(t *testing.T) {
	suite.Run(t, &AutoTrackTestSuite{})
}

// TestVehicleLifecycle walks through the everyday flow of the app: a
// user registers, adds a car, records refuelings and maintenances,
// stores the inspection document and finally removes the car again.
func (s *AutoTrackTestSuite) TestVehicleLifecycle() {
	user := backend.User{
		FirebaseUserID: "uid-lifecycle",
		UserEmail:      "lifecycle@example.com",
		UserName:       "Lifecycle Tester",
	}
	_, err := s.Client.RawPost("/api/users", &user, &user)
	s.Require().NoError(err)

	carRequest := struct {
		Car            backend.Car `json:"car"`
		FirebaseUserID string      `json:"firebase_user_id"`
	}{
		Car: backend.Car{
			CarName:     "Jimny",
			CarModelNum: "JB64W",
			CarColor:    "green",
			CarMileage:  300,
		},
		FirebaseUserID: user.FirebaseUserID,
	}
	var car backend.Car
	_, err = s.Client.RawPost("/api/cars", &carRequest, &car)
	s.Require().NoError(err)
	s.Require().NotZero(car.CarID)

	var cars []backend.Car
	_, err = s.Client.RawGet("/api/users/"+user.FirebaseUserID+"/cars", &cars)
	s.Require().NoError(err)
	s.Require().Len(cars, 1)
	s.Equal(car.CarID, cars[0].CarID)

	date := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	var fe backend.FuelEfficiency
	_, err = s.Client.RawPost("/api/fuel_efficiencies", &backend.FuelEfficiency{
		CarID: car.CarID, FeDate: date, FeAmount: 28, FeUnitPrice: 1.69, FeMileage: 410,
	}, &fe)
	s.Require().NoError(err)

	var maint backend.Maintenance
	_, err = s.Client.RawPost("/api/maintenances", &backend.Maintenance{
		CarID: car.CarID, MaintType: "TireChange", MaintTitle: "whatever",
		MaintDate: date, MaintDescription: "mud terrain",
	}, &maint)
	s.Require().NoError(err)
	s.Equal("Tire Change", maint.MaintTitle)

	inspectionRequest := map[string]interface{}{
		"car_inspection": map[string]interface{}{
			"car_id":  car.CarID,
			"is_kcar": 1,
			"model":   "3BA-JB64W",
		},
	}
	var inspection backend.CarInspection
	_, err = s.Client.RawPost("/api/car_inspections", inspectionRequest, &inspection)
	s.Require().NoError(err)
	s.Require().NotNil(inspection.SystemID2)
	s.Equal("K", *inspection.SystemID2)
	s.Nil(inspection.DriveSystem)

	carID := fmt.Sprintf("%d", car.CarID)
	_, err = s.Client.RawDelete("/api/cars/" + carID)
	s.Require().NoError(err)

	status, _ := s.Client.RawGetStatus("/api/cars/"+carID, nil)
	s.Equal(http.StatusNotFound, status)
	status, _ = s.Client.RawGetStatus("/api/car_inspections/"+carID, nil)
	s.Equal(http.StatusNotFound, status)
	status, _ = s.Client.RawGetStatus(fmt.Sprintf("/api/fuel_efficiencies/%d", fe.FeID), nil)
	s.Equal(http.StatusNotFound, status)
	status, _ = s.Client.RawGetStatus(fmt.Sprintf("/api/maintenances/%d", maint.MaintID), nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *AutoTrackTestSuite) TestValidationEnvelope() {
	body := map[string]interface{}{
		"car_id":       1,
		"fe_date":      "2024-08-01T12:00:00Z",
		"fe_amount":    -1,
		"fe_unitprice": 1.5,
		"fe_mileage":   100,
	}
	var envelope struct {
		Error   string `json:"error"`
		Details []struct {
			Field       string `json:"field"`
			Description string `json:"description"`
		} `json:"details"`
	}
	status, err := s.Client.RawPostStatus("/api/fuel_efficiencies", body, &envelope)
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Invalid input", envelope.Error)
	s.Require().NotEmpty(envelope.Details)
	s.Equal("fe_amount", envelope.Details[0].Field)
}

func (s *AutoTrackTestSuite) TestImageUploadOverHTTP() {
	var result struct {
		URL string `json:"url"`
	}
	status, err := s.Client.PostMultipart("/api/images", "manual.pdf", []byte("%PDF-1.4"), &result)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, status)
	s.Equal("http://images.example.com/images/manual.pdf", result.URL)
}
