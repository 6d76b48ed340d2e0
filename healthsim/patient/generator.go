package patient

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Pallinder/go-randomdata"

	"github.com/mark64oswald/healthsim-core/healthsim/synth"
)

// Generator produces synthetic patients. The same seed always yields
// the same sequence of patients. A Generator is not safe for
// concurrent use; create one per goroutine.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Options constrain a generated patient. Zero values leave the
// corresponding attribute unconstrained.
type Options struct {
	// AgeMin and AgeMax bound the patient age in whole years.
	AgeMin int
	AgeMax int
	// Gender is "M" or "F".
	Gender string
	// Conditions guarantees the named conditions appear in the
	// patient's diagnosis list. Condition names match scenario names.
	Conditions []string
	// Scenario selects a clinical archetype. Defaults to "wellness".
	Scenario string
}

var streetNames = []string{
	"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Blvd",
	"Washington Ave", "Lake Rd", "Hillcrest Dr", "Elm St", "River Rd",
}

// GeneratePatient builds one patient honoring opts.
func (g *Generator) GeneratePatient(opts Options) (*Patient, error) {
	defer synth.Bind(g.rng)()

	scenarioName := opts.Scenario
	if scenarioName == "" {
		scenarioName = "wellness"
	}
	scenario, err := GetScenario(scenarioName)
	if err != nil {
		return nil, err
	}

	gender := opts.Gender
	if gender == "" {
		gender = randomdata.StringSample("M", "F")
	}
	if gender != "M" && gender != "F" {
		return nil, fmt.Errorf("invalid gender %q", opts.Gender)
	}

	ageMin, ageMax := opts.AgeMin, opts.AgeMax
	if ageMin == 0 && ageMax == 0 {
		ageMin, ageMax = scenario.AgeMin, scenario.AgeMax
	}
	if ageMax < ageMin {
		return nil, fmt.Errorf("invalid age range %d-%d", ageMin, ageMax)
	}
	age := ageMin
	if ageMax > ageMin {
		age += g.rng.Intn(ageMax - ageMin + 1)
	}

	nameGender := randomdata.Male
	if gender == "F" {
		nameGender = randomdata.Female
	}

	p := &Patient{
		PatientID: "PT" + randomdata.StringNumberExt(1, "", 8),
		MRN:       "MRN" + randomdata.StringNumberExt(1, "", 8),
		FirstName: randomdata.FirstName(nameGender),
		LastName:  randomdata.LastName(),
		Gender:    gender,
		BirthDate: birthDateForAge(g.rng, age),
		Address: Address{
			Line:  fmt.Sprintf("%d %s", randomdata.Number(100, 9999), randomdata.StringSample(streetNames...)),
			City:  randomdata.City(),
			State: randomdata.State(randomdata.Large),
			Zip:   randomdata.StringNumberExt(1, "", 5),
		},
		Phone: fmt.Sprintf("(%d) %s-%s", randomdata.Number(201, 989),
			randomdata.StringNumberExt(1, "", 3), randomdata.StringNumberExt(1, "", 4)),
	}

	g.applyScenario(p, scenario)
	for _, condition := range opts.Conditions {
		if err := g.applyCondition(p, condition); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// GenerateBatch builds a cohort of count patients.
func (g *Generator) GenerateBatch(count int, opts Options) ([]*Patient, error) {
	patients := make([]*Patient, 0, count)
	for i := 0; i < count; i++ {
		p, err := g.GeneratePatient(opts)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, nil
}

func (g *Generator) applyScenario(p *Patient, s Scenario) {
	for i, dx := range s.Diagnoses {
		// The first diagnosis anchors the scenario and is always present.
		if i == 0 || g.rng.Float64() < dx.Probability {
			p.Diagnoses = append(p.Diagnoses, Diagnosis{Code: dx.Code, Description: dx.Description})
		}
	}
	for _, med := range s.Medications {
		if g.rng.Float64() < med.Probability {
			p.Medications = append(p.Medications, Medication{
				Name: med.Name, Dose: med.Dose, NDC: med.NDC, GPI: med.GPI,
			})
		}
	}
	for _, obs := range s.Observations {
		value := obs.Min + g.rng.Float64()*(obs.Max-obs.Min)
		p.Observations = append(p.Observations, Observation{
			LOINC: obs.LOINC,
			Name:  obs.Name,
			Value: math.Round(value*10) / 10,
			Unit:  obs.Unit,
		})
	}

	encounterCount := s.Encounters.Min
	if s.Encounters.Max > s.Encounters.Min {
		encounterCount += g.rng.Intn(s.Encounters.Max - s.Encounters.Min + 1)
	}
	types := s.Encounters.Types
	if len(types) == 0 {
		types = []string{"office visit"}
	}
	now := time.Now()
	for i := 0; i < encounterCount; i++ {
		admit := randomDate(now.AddDate(-1, 0, 0), now)
		enc := Encounter{
			EncounterID: "ENC" + randomdata.StringNumberExt(1, "", 10),
			Type:        randomdata.StringSample(types...),
			AdmitDate:   admit,
		}
		if enc.Type == "inpatient" {
			discharge := admit.AddDate(0, 0, 1+g.rng.Intn(5))
			enc.DischargeDate = &discharge
		}
		p.Encounters = append(p.Encounters, enc)
	}
}

// applyCondition guarantees the condition's anchor diagnosis is on the
// patient, reusing the scenario definition of the same name.
func (g *Generator) applyCondition(p *Patient, condition string) error {
	s, err := GetScenario(condition)
	if err != nil {
		return fmt.Errorf("unknown condition %q", condition)
	}
	if len(s.Diagnoses) == 0 {
		return nil
	}
	anchor := s.Diagnoses[0]
	for _, dx := range p.Diagnoses {
		if dx.Code == anchor.Code {
			return nil
		}
	}
	p.Diagnoses = append(p.Diagnoses, Diagnosis{Code: anchor.Code, Description: anchor.Description})
	for _, med := range s.Medications {
		if g.rng.Float64() < med.Probability {
			p.Medications = append(p.Medications, Medication{
				Name: med.Name, Dose: med.Dose, NDC: med.NDC, GPI: med.GPI,
			})
		}
	}
	return nil
}

// birthDateForAge returns a date that makes the patient exactly age
// years old today.
func birthDateForAge(rng *rand.Rand, age int) time.Time {
	base := time.Now().AddDate(-age, 0, 0)
	return base.AddDate(0, 0, -rng.Intn(360))
}

func randomDate(min, max time.Time) time.Time {
	d := randomdata.FullDateInRange(min.Format(randomdata.DateInputLayout),
		max.Format(randomdata.DateInputLayout))
	t, err := time.Parse(randomdata.DateOutputLayout, d)
	if err != nil {
		return min
	}
	return t
}
