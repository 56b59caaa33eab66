package consultation

import (
	"testing"
)

func f64(v float64) *float64 { return &v }

func validVitals() VitalSigns {
	return VitalSigns{
		BloodPressure:    "120/80",
		HeartRate:        f64(72),
		RespiratoryRate:  f64(16),
		Temperature:      f64(36.6),
		OxygenSaturation: f64(98),
		Weight:           f64(70),
		Height:           f64(1.75),
	}
}

func TestVitalSigns_ValidateAcceptsNormalReadings(t *testing.T) {
	if errs := validVitals().Validate(); errs.HasErrors() {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestVitalSigns_ValidateMissing(t *testing.T) {
	errs := VitalSigns{}.Validate()
	want := map[string]string{
		"blood_pressure":    "La presión arterial es obligatoria",
		"heart_rate":        "La frecuencia cardíaca es obligatoria",
		"respiratory_rate":  "La frecuencia respiratoria es obligatoria",
		"temperature":       "La temperatura es obligatoria",
		"oxygen_saturation": "La saturación de oxígeno es obligatoria",
		"weight":            "El peso es obligatorio",
		"height":            "La talla es obligatoria",
	}
	for field, msg := range want {
		if got := errs[field]; len(got) != 1 || got[0] != msg {
			t.Errorf("%s: got %v, want %q", field, got, msg)
		}
	}
}

func TestVitalSigns_ValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *VitalSigns)
		field  string
		msg    string
	}{
		{"bad pressure format", func(v *VitalSigns) { v.BloodPressure = "120-80" }, "blood_pressure", "Formato de presión arterial inválido (ej: 120/80)"},
		{"pressure too many digits", func(v *VitalSigns) { v.BloodPressure = "1200/80" }, "blood_pressure", "Formato de presión arterial inválido (ej: 120/80)"},
		{"bradycardia", func(v *VitalSigns) { v.HeartRate = f64(39) }, "heart_rate", "Frecuencia cardíaca debe estar entre 40-200 lpm"},
		{"tachypnea", func(v *VitalSigns) { v.RespiratoryRate = f64(41) }, "respiratory_rate", "Frecuencia respiratoria debe estar entre 8-40 rpm"},
		{"hypothermia", func(v *VitalSigns) { v.Temperature = f64(34.9) }, "temperature", "Temperatura debe estar entre 35-42 °C"},
		{"low saturation", func(v *VitalSigns) { v.OxygenSaturation = f64(69) }, "oxygen_saturation", "Saturación de oxígeno debe estar entre 70-100%"},
		{"weight zero", func(v *VitalSigns) { v.Weight = f64(0) }, "weight", "Peso debe estar entre 1-300 kg"},
		{"height in cm", func(v *VitalSigns) { v.Height = f64(175) }, "height", "Talla debe estar entre 0.3-2.5 m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVitals()
			tt.mutate(&v)
			errs := v.Validate()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one failing field, got %v", errs)
			}
			if got := errs[tt.field]; len(got) != 1 || got[0] != tt.msg {
				t.Errorf("got %v, want %q", got, tt.msg)
			}
		})
	}
}

func TestVitalSigns_BoundariesAreInclusive(t *testing.T) {
	v := validVitals()
	v.HeartRate, v.RespiratoryRate, v.Temperature = f64(40), f64(40), f64(42)
	v.OxygenSaturation, v.Weight, v.Height = f64(100), f64(300), f64(0.3)
	if errs := v.Validate(); errs.HasErrors() {
		t.Errorf("boundary values should pass, got %v", errs)
	}
}

func TestBMI(t *testing.T) {
	tests := []struct {
		weight, height float64
		want           float64
		category       string
	}{
		{70, 1.75, 22.86, "Normal"},
		{50, 1.70, 17.3, "Bajo peso"},
		{80, 1.70, 27.68, "Sobrepeso"},
		{110, 1.70, 38.06, "Obesidad"},
	}
	for _, tt := range tests {
		got := BMI(tt.weight, tt.height)
		if got != tt.want {
			t.Errorf("BMI(%v, %v) = %v, want %v", tt.weight, tt.height, got, tt.want)
		}
		if c := BMICategory(got); c != tt.category {
			t.Errorf("BMICategory(%v) = %q, want %q", got, c, tt.category)
		}
	}
	if BMICategory(25) != "Sobrepeso" || BMICategory(18.5) != "Normal" || BMICategory(30) != "Obesidad" {
		t.Error("category thresholds are lower-inclusive")
	}
}

func TestVitalSigns_ComputeBMI(t *testing.T) {
	v := validVitals()
	v.ComputeBMI()
	if v.BMI == nil || *v.BMI != 22.86 {
		t.Errorf("expected 22.86, got %v", v.BMI)
	}

	v.Height = nil
	v.ComputeBMI()
	if v.BMI != nil {
		t.Error("expected BMI cleared without height")
	}
}

func TestVitalSignsForm_Parse(t *testing.T) {
	form := VitalSignsForm{
		BloodPressure:    " 120/80 ",
		HeartRate:        "72",
		RespiratoryRate:  "16",
		Temperature:      "36,8",
		OxygenSaturation: "97",
		Weight:           "70",
		Height:           "1.75",
	}
	v, errs := form.Parse()
	if errs.HasErrors() {
		t.Fatalf("unexpected errors %v", errs)
	}
	if v.BloodPressure != "120/80" || *v.Temperature != 36.8 {
		t.Errorf("unexpected parse %+v", v)
	}
	if v.BMI == nil || *v.BMI != 22.86 {
		t.Errorf("expected BMI computed, got %v", v.BMI)
	}
}

func TestVitalSignsForm_ParseRejectsEverythingAtOnce(t *testing.T) {
	form := VitalSignsForm{HeartRate: "abc", Temperature: "50", Weight: "70"}
	_, errs := form.Parse()

	if got := errs["heart_rate"]; len(got) != 1 || got[0] != "Frecuencia cardíaca debe estar entre 40-200 lpm" {
		t.Errorf("unparsable reading should be out of range, got %v", got)
	}
	if got := errs["temperature"]; len(got) != 1 || got[0] != "Temperatura debe estar entre 35-42 °C" {
		t.Errorf("unexpected temperature errors %v", got)
	}
	if _, ok := errs["weight"]; ok {
		t.Error("valid weight should not be reported")
	}
	if len(errs.Fields()) != 6 {
		t.Errorf("expected 6 failing fields, got %v", errs.Fields())
	}
}
