package consultation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/clinica/clinic/internal/platform/validation"
)

var bloodPressurePattern = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

// VitalSigns is the nursing intake stored with a consultation.
type VitalSigns struct {
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	Height           *float64 `json:"height,omitempty"`
	BMI              *float64 `json:"bmi,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

type vitalRange struct {
	field    string
	min, max float64
	required string
	outside  string
}

var (
	heartRateRange       = vitalRange{"heart_rate", 40, 200, "La frecuencia cardíaca es obligatoria", "Frecuencia cardíaca debe estar entre 40-200 lpm"}
	respiratoryRateRange = vitalRange{"respiratory_rate", 8, 40, "La frecuencia respiratoria es obligatoria", "Frecuencia respiratoria debe estar entre 8-40 rpm"}
	temperatureRange     = vitalRange{"temperature", 35, 42, "La temperatura es obligatoria", "Temperatura debe estar entre 35-42 °C"}
	saturationRange      = vitalRange{"oxygen_saturation", 70, 100, "La saturación de oxígeno es obligatoria", "Saturación de oxígeno debe estar entre 70-100%"}
	weightRange          = vitalRange{"weight", 1, 300, "El peso es obligatorio", "Peso debe estar entre 1-300 kg"}
	heightRange          = vitalRange{"height", 0.3, 2.5, "La talla es obligatoria", "Talla debe estar entre 0.3-2.5 m"}
)

func (r vitalRange) check(errs validation.Errors, v *float64) {
	switch {
	case v == nil:
		errs.Add(r.field, r.required)
	case math.IsNaN(*v) || *v < r.min || *v > r.max:
		errs.Add(r.field, r.outside)
	}
}

func checkBloodPressure(errs validation.Errors, bp string) {
	switch {
	case bp == "":
		errs.Add("blood_pressure", "La presión arterial es obligatoria")
	case !bloodPressurePattern.MatchString(bp):
		errs.Add("blood_pressure", "Formato de presión arterial inválido (ej: 120/80)")
	}
}

// Validate checks that every reading is present and physiologically plausible.
func (v VitalSigns) Validate() validation.Errors {
	errs := validation.Errors{}
	checkBloodPressure(errs, strings.TrimSpace(v.BloodPressure))
	heartRateRange.check(errs, v.HeartRate)
	respiratoryRateRange.check(errs, v.RespiratoryRate)
	temperatureRange.check(errs, v.Temperature)
	saturationRange.check(errs, v.OxygenSaturation)
	weightRange.check(errs, v.Weight)
	heightRange.check(errs, v.Height)
	return errs
}

// ComputeBMI fills BMI from weight and height when both are usable.
func (v *VitalSigns) ComputeBMI() {
	if v.Weight == nil || v.Height == nil || *v.Height <= 0 {
		v.BMI = nil
		return
	}
	bmi := BMI(*v.Weight, *v.Height)
	v.BMI = &bmi
}

// BMI is weight (kg) over height (m) squared, rounded to two decimals.
func BMI(weight, height float64) float64 {
	return math.Round(weight/(height*height)*100) / 100
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Bajo peso"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Sobrepeso"
	default:
		return "Obesidad"
	}
}

// VitalSignsForm holds the readings as typed at the desk, before parsing.
type VitalSignsForm struct {
	BloodPressure    string
	HeartRate        string
	RespiratoryRate  string
	Temperature      string
	OxygenSaturation string
	Weight           string
	Height           string
	Notes            string
}

// Parse converts the form into VitalSigns. Blank readings are reported as
// missing and unparsable ones as out of range, so nothing is submitted
// until every field is valid.
func (f VitalSignsForm) Parse() (VitalSigns, validation.Errors) {
	errs := validation.Errors{}
	v := VitalSigns{
		BloodPressure: strings.TrimSpace(f.BloodPressure),
		Notes:         strings.TrimSpace(f.Notes),
	}
	checkBloodPressure(errs, v.BloodPressure)

	fields := []struct {
		raw string
		rng vitalRange
		dst **float64
	}{
		{f.HeartRate, heartRateRange, &v.HeartRate},
		{f.RespiratoryRate, respiratoryRateRange, &v.RespiratoryRate},
		{f.Temperature, temperatureRange, &v.Temperature},
		{f.OxygenSaturation, saturationRange, &v.OxygenSaturation},
		{f.Weight, weightRange, &v.Weight},
		{f.Height, heightRange, &v.Height},
	}
	for _, fd := range fields {
		raw := strings.TrimSpace(strings.ReplaceAll(fd.raw, ",", "."))
		if raw == "" {
			fd.rng.check(errs, nil)
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			n = math.NaN()
		}
		fd.rng.check(errs, &n)
		if err == nil {
			*fd.dst = &n
		}
	}

	if errs.HasErrors() {
		return VitalSigns{}, errs
	}
	v.ComputeBMI()
	return v, nil
}
