package backend

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/lib/pq"

	"github.com/autotrack-work/backend/core/logger"
)

// CarInspection represents a scanned vehicle-registration document
// (shaken), one per car. The field set depends on the vehicle
// category: standard cars fill the standard group, kei cars fill the
// kei group. The other group is held at null, see normalize.
type CarInspection struct {
	CarID                      int64    `json:"car_id"`
	IsKcar                     int      `json:"is_kcar"`
	ChassisNumberStampLocation *string  `json:"chassis_number_stamp_location"`
	ExpirationDate             *string  `json:"expiration_date"`
	FirstRegistrationYearMonth *string  `json:"first_registration_year_month"`
	Model                      *string  `json:"model"`
	AxleWeightFf               *float64 `json:"axle_weight_ff"`
	AxleWeightRr               *float64 `json:"axle_weight_rr"`
	NoiseRegulation            *string  `json:"noise_regulation"`
	ProximityExhaustNoiseLimit *float64 `json:"proximity_exhaust_noise_limit"`
	FuelTypeCode               *string  `json:"fuel_type_code"`
	CarRegistrationNumber      *string  `json:"car_registration_number"`
	PlateCountSizeIdentifier   *string  `json:"plate_count_size_preferred_number_identifier"`
	ChassisNumber              *string  `json:"chassis_number"`
	EngineModel                *string  `json:"engine_model"`
	DocumentType               *string  `json:"document_type"`

	// standard cars only
	VersionInfo1                  *string  `json:"version_info_1"`
	VersionInfo2                  *string  `json:"version_info_2"`
	RegistrationVersionInfo       *string  `json:"registration_version_info"`
	ModelSpecificationNumber      *string  `json:"model_specification_number_category_classification_number"`
	SystemID1                     *string  `json:"system_id_1"`
	VersionNumber1                *string  `json:"version_number_1"`
	AxleWeightFr                  *float64 `json:"axle_weight_fr"`
	AxleWeightRf                  *float64 `json:"axle_weight_rf"`
	DriveSystem                   *string  `json:"drive_system"`
	OpacimeterMeasuredCar         *int     `json:"opacimeter_measured_car"`
	NoxPmMeasurementMode          *string  `json:"nox_pm_measurement_mode"`
	NoxValue                      *float64 `json:"nox_value"`
	PmValue                       *float64 `json:"pm_value"`
	SafetyStandardApplicationDate *string  `json:"safety_standard_application_date"`

	// kei cars only
	SystemID2              *string  `json:"system_id_2"`
	SystemID3              *string  `json:"system_id_3"`
	VersionNumber2         *string  `json:"version_number_2"`
	VersionNumber3         *string  `json:"version_number_3"`
	KAxleWeightFr          *float64 `json:"k_axle_weight_fr"`
	KAxleWeightRf          *float64 `json:"k_axle_weight_rf"`
	KDriveSystem           *string  `json:"k_drive_system"`
	KOpacimeterMeasuredCar *int     `json:"k_opacimeter_measured_car"`
	KNoxPmMeasurementMode  *string  `json:"k_nox_pm_measurement_mode"`
	KNoxValue              *float64 `json:"k_nox_value"`
	KPmValue               *float64 `json:"k_pm_value"`
	PreliminaryItem        *string  `json:"preliminary_item"`
}

// fixed sentinel values of the kei registration document format
const (
	keiSystemID2       = "K"
	keiSystemID3       = "32"
	keiVersionNumber2  = "22"
	keiVersionNumber3  = "999"
	keiPreliminaryItem = "-"
)

// normalize enforces the category invariant before write: exactly one
// of the two category field groups carries values, selected by
// is_kcar. For kei cars the constant document fields default to their
// sentinel values when the client omitted them.
func (ci *CarInspection) normalize() {
	if ci.IsKcar == 0 {
		ci.SystemID2 = nil
		ci.SystemID3 = nil
		ci.VersionNumber2 = nil
		ci.VersionNumber3 = nil
		ci.KAxleWeightFr = nil
		ci.KAxleWeightRf = nil
		ci.KDriveSystem = nil
		ci.KOpacimeterMeasuredCar = nil
		ci.KNoxPmMeasurementMode = nil
		ci.KNoxValue = nil
		ci.KPmValue = nil
		ci.PreliminaryItem = nil
		return
	}
	ci.VersionInfo1 = nil
	ci.VersionInfo2 = nil
	ci.RegistrationVersionInfo = nil
	ci.ModelSpecificationNumber = nil
	ci.SystemID1 = nil
	ci.VersionNumber1 = nil
	ci.AxleWeightFr = nil
	ci.AxleWeightRf = nil
	ci.DriveSystem = nil
	ci.OpacimeterMeasuredCar = nil
	ci.NoxPmMeasurementMode = nil
	ci.NoxValue = nil
	ci.PmValue = nil
	ci.SafetyStandardApplicationDate = nil
	if ci.SystemID2 == nil {
		ci.SystemID2 = strptr(keiSystemID2)
	}
	if ci.SystemID3 == nil {
		ci.SystemID3 = strptr(keiSystemID3)
	}
	if ci.VersionNumber2 == nil {
		ci.VersionNumber2 = strptr(keiVersionNumber2)
	}
	if ci.VersionNumber3 == nil {
		ci.VersionNumber3 = strptr(keiVersionNumber3)
	}
	if ci.PreliminaryItem == nil {
		ci.PreliminaryItem = strptr(keiPreliminaryItem)
	}
}

func strptr(s string) *string {
	return &s
}

// column order matches scanCarInspection and carInspectionArgs
var carInspectionColumns = []string{
	"car_id", "is_kcar", "chassis_number_stamp_location", "expiration_date",
	"first_registration_year_month", "model", "axle_weight_ff", "axle_weight_rr",
	"noise_regulation", "proximity_exhaust_noise_limit", "fuel_type_code",
	"car_registration_number", "plate_count_size_preferred_number_identifier",
	"chassis_number", "engine_model", "document_type",
	"version_info_1", "version_info_2", "registration_version_info",
	"model_specification_number_category_classification_number", "system_id_1",
	"version_number_1", "axle_weight_fr", "axle_weight_rf", "drive_system",
	"opacimeter_measured_car", "nox_pm_measurement_mode", "nox_value", "pm_value",
	"safety_standard_application_date",
	"system_id_2", "system_id_3", "version_number_2", "version_number_3",
	"k_axle_weight_fr", "k_axle_weight_rf", "k_drive_system",
	"k_opacimeter_measured_car", "k_nox_pm_measurement_mode", "k_nox_value",
	"k_pm_value", "preliminary_item",
}

func scanCarInspection(row rowScanner, ci *CarInspection) error {
	return row.Scan(&ci.CarID, &ci.IsKcar, &ci.ChassisNumberStampLocation, &ci.ExpirationDate,
		&ci.FirstRegistrationYearMonth, &ci.Model, &ci.AxleWeightFf, &ci.AxleWeightRr,
		&ci.NoiseRegulation, &ci.ProximityExhaustNoiseLimit, &ci.FuelTypeCode,
		&ci.CarRegistrationNumber, &ci.PlateCountSizeIdentifier, &ci.ChassisNumber,
		&ci.EngineModel, &ci.DocumentType, &ci.VersionInfo1, &ci.VersionInfo2,
		&ci.RegistrationVersionInfo, &ci.ModelSpecificationNumber, &ci.SystemID1,
		&ci.VersionNumber1, &ci.AxleWeightFr, &ci.AxleWeightRf, &ci.DriveSystem,
		&ci.OpacimeterMeasuredCar, &ci.NoxPmMeasurementMode, &ci.NoxValue, &ci.PmValue,
		&ci.SafetyStandardApplicationDate, &ci.SystemID2, &ci.SystemID3, &ci.VersionNumber2,
		&ci.VersionNumber3, &ci.KAxleWeightFr, &ci.KAxleWeightRf, &ci.KDriveSystem,
		&ci.KOpacimeterMeasuredCar, &ci.KNoxPmMeasurementMode, &ci.KNoxValue, &ci.KPmValue,
		&ci.PreliminaryItem)
}

func carInspectionArgs(ci *CarInspection) []interface{} {
	return []interface{}{ci.CarID, ci.IsKcar, ci.ChassisNumberStampLocation, ci.ExpirationDate,
		ci.FirstRegistrationYearMonth, ci.Model, ci.AxleWeightFf, ci.AxleWeightRr,
		ci.NoiseRegulation, ci.ProximityExhaustNoiseLimit, ci.FuelTypeCode,
		ci.CarRegistrationNumber, ci.PlateCountSizeIdentifier, ci.ChassisNumber,
		ci.EngineModel, ci.DocumentType, ci.VersionInfo1, ci.VersionInfo2,
		ci.RegistrationVersionInfo, ci.ModelSpecificationNumber, ci.SystemID1,
		ci.VersionNumber1, ci.AxleWeightFr, ci.AxleWeightRf, ci.DriveSystem,
		ci.OpacimeterMeasuredCar, ci.NoxPmMeasurementMode, ci.NoxValue, ci.PmValue,
		ci.SafetyStandardApplicationDate, ci.SystemID2, ci.SystemID3, ci.VersionNumber2,
		ci.VersionNumber3, ci.KAxleWeightFr, ci.KAxleWeightRf, ci.KDriveSystem,
		ci.KOpacimeterMeasuredCar, ci.KNoxPmMeasurementMode, ci.KNoxValue, ci.KPmValue,
		ci.PreliminaryItem}
}

func (b *Backend) handleCarInspectionRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle car inspection routes")

	columns := strings.Join(carInspectionColumns, ", ")
	placeholders := make([]string, len(carInspectionColumns))
	sets := make([]string, 0, len(carInspectionColumns)-1)
	for i, column := range carInspectionColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if i > 0 { // car_id is the key, not part of the SET clause
			sets = append(sets, fmt.Sprintf("%s = $%d", column, i+1))
		}
	}

	readQuery := `SELECT ` + columns + ` FROM ` + schema + `.car_inspections `
	insertQuery := `INSERT INTO ` + schema + `.car_inspections (` + columns + `)
VALUES (` + strings.Join(placeholders, ", ") + `) RETURNING ` + columns + `;`
	updateQuery := `UPDATE ` + schema + `.car_inspections SET ` + strings.Join(sets, ", ") +
		` WHERE car_id = $1 RETURNING ` + columns + `;`

	inspectionList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY car_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		inspections := []CarInspection{}
		for rows.Next() {
			var ci CarInspection
			if err := scanCarInspection(rows, &ci); err != nil {
				internalError(w, r, err)
				return
			}
			inspections = append(inspections, ci)
		}
		respondJSON(w, http.StatusOK, inspections)
	}

	inspectionRead := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var ci CarInspection
		err := scanCarInspection(b.db.QueryRow(readQuery+`WHERE car_id = $1;`, carID), &ci)
		if err == sql.ErrNoRows {
			notFound(w, "car inspection")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, ci)
	}

	inspectionCreate := func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CarInspection CarInspection `json:"car_inspection"`
		}
		if !b.decodeBody(w, r, "car_inspection_create", &req) {
			return
		}
		ci := req.CarInspection
		if !b.carMustExist(w, r, ci.CarID) {
			return
		}
		ci.normalize()
		err := scanCarInspection(b.db.QueryRow(insertQuery, carInspectionArgs(&ci)...), &ci)
		if pqerr, ok := err.(*pq.Error); ok && pqerr.Code.Name() == "unique_violation" {
			errorResponse(w, http.StatusConflict, "car inspection already exists")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, ci)
	}

	// the update is keyed by car_id, there is at most one inspection
	// per car
	inspectionUpdate := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var req struct {
			CarInspection CarInspection `json:"car_inspection"`
		}
		if !b.decodeBody(w, r, "car_inspection_update", &req) {
			return
		}
		ci := req.CarInspection
		ci.CarID = carID
		ci.normalize()
		err := scanCarInspection(b.db.QueryRow(updateQuery, carInspectionArgs(&ci)...), &ci)
		if err == sql.ErrNoRows {
			notFound(w, "car inspection")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, ci)
	}

	inspectionDelete := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.car_inspections WHERE car_id = $1;`, carID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "car inspection")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	b.api.Handle("/car_inspections", handlers.CompressHandler(http.HandlerFunc(inspectionList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/car_inspections", handlers.CompressHandler(http.HandlerFunc(inspectionCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/car_inspections/{car_id}", handlers.CompressHandler(http.HandlerFunc(inspectionRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/car_inspections/{car_id}", handlers.CompressHandler(http.HandlerFunc(inspectionUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/car_inspections/{car_id}", handlers.CompressHandler(http.HandlerFunc(inspectionDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
}
