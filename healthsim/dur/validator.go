package dur

import (
	"fmt"
	"strings"
)

// GPI drug class prefixes referenced by the screening rules.
const (
	classAnticoagulants = "83"
	classNSAIDs         = "66"
	classOpioids        = "65"
	classBenzods        = "57"

	prefixFinasteride = "24100070"
)

// interaction is a known drug-drug interaction between two GPI
// therapeutic classes.
type interaction struct {
	classA, classB string
	severity       int
	message        string
}

var interactions = []interaction{
	{classAnticoagulants, classNSAIDs, SeverityMajor,
		"anticoagulant with NSAID increases bleeding risk"},
	{classOpioids, classBenzods, SeverityMajor,
		"opioid with benzodiazepine increases risk of respiratory depression"},
	{classAnticoagulants, classOpioids, SeverityModerate,
		"anticoagulant with opioid requires monitoring"},
}

// maxDailyUnits is the screening threshold for the high dose rule.
const maxDailyUnits = 6

// earlyRefillThreshold is the fraction of the previous supply that
// must elapse before a refill is allowed.
const earlyRefillThreshold = 0.75

// Validator screens prescriptions. The zero value is ready to use.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate runs every DUR rule against the request. A clean
// prescription returns Passed with no alerts.
func (v *Validator) Validate(req Request) Result {
	var alerts []Alert

	alerts = append(alerts, v.screenInteractions(req)...)
	alerts = append(alerts, v.screenDuplication(req)...)
	if a := v.screenHighDose(req); a != nil {
		alerts = append(alerts, *a)
	}
	if a := v.screenEarlyRefill(req); a != nil {
		alerts = append(alerts, *a)
	}
	if a := v.screenAge(req); a != nil {
		alerts = append(alerts, *a)
	}
	if a := v.screenGender(req); a != nil {
		alerts = append(alerts, *a)
	}

	return Result{Passed: len(alerts) == 0, Alerts: alerts}
}

func (v *Validator) screenInteractions(req Request) []Alert {
	var alerts []Alert
	newClass := gpiClass(req.Drug.GPI)
	for _, med := range req.CurrentMedications {
		medClass := gpiClass(med.GPI)
		for _, ix := range interactions {
			if (newClass == ix.classA && medClass == ix.classB) ||
				(newClass == ix.classB && medClass == ix.classA) {
				alerts = append(alerts, Alert{
					Type:            AlertDrugDrugInteraction,
					Severity:        ix.severity,
					Message:         fmt.Sprintf("%s with %s: %s", req.Drug.Name, med.Name, ix.message),
					ConflictingDrug: med.Name,
				})
			}
		}
	}
	return alerts
}

// screenDuplication flags a second drug from the same GPI therapeutic
// subclass (first six digits), e.g. two statins.
func (v *Validator) screenDuplication(req Request) []Alert {
	var alerts []Alert
	newSubclass := gpiSubclass(req.Drug.GPI)
	if newSubclass == "" {
		return nil
	}
	for _, med := range req.CurrentMedications {
		if med.NDC == req.Drug.NDC {
			continue
		}
		if gpiSubclass(med.GPI) == newSubclass {
			alerts = append(alerts, Alert{
				Type:            AlertTherapeuticDuplication,
				Severity:        SeverityModerate,
				Message:         fmt.Sprintf("%s duplicates therapy with %s", req.Drug.Name, med.Name),
				ConflictingDrug: med.Name,
			})
		}
	}
	return alerts
}

func (v *Validator) screenHighDose(req Request) *Alert {
	if req.DaysSupply <= 0 {
		return nil
	}
	daily := float64(req.Quantity) / float64(req.DaysSupply)
	if daily <= maxDailyUnits {
		return nil
	}
	return &Alert{
		Type:     AlertHighDose,
		Severity: SeverityModerate,
		Message: fmt.Sprintf("%s at %.1f units per day exceeds the %d unit screening threshold",
			req.Drug.Name, daily, maxDailyUnits),
	}
}

// screenEarlyRefill flags a fill of the same drug before 75% of the
// previous supply has elapsed.
func (v *Validator) screenEarlyRefill(req Request) *Alert {
	if req.ServiceDate.IsZero() {
		return nil
	}
	for _, med := range req.CurrentMedications {
		if med.NDC != req.Drug.NDC || med.LastFillDate.IsZero() || med.DaysSupply <= 0 {
			continue
		}
		elapsed := req.ServiceDate.Sub(med.LastFillDate).Hours() / 24
		if elapsed < 0 {
			continue
		}
		if elapsed < float64(med.DaysSupply)*earlyRefillThreshold {
			return &Alert{
				Type:     AlertEarlyRefill,
				Severity: SeverityModerate,
				Message: fmt.Sprintf("%s refilled after %.0f of %d days supply",
					req.Drug.Name, elapsed, med.DaysSupply),
				ConflictingDrug: med.Name,
			}
		}
	}
	return nil
}

// screenAge applies the Beers style rule for NSAIDs in patients 65
// and over.
func (v *Validator) screenAge(req Request) *Alert {
	if req.PatientAge < 65 || gpiClass(req.Drug.GPI) != classNSAIDs {
		return nil
	}
	return &Alert{
		Type:     AlertDrugAge,
		Severity: SeverityModerate,
		Message: fmt.Sprintf("%s is a high-risk medication in patients 65 and over (age %d)",
			req.Drug.Name, req.PatientAge),
	}
}

func (v *Validator) screenGender(req Request) *Alert {
	if !strings.EqualFold(req.PatientGender, "F") {
		return nil
	}
	if !strings.HasPrefix(req.Drug.GPI, prefixFinasteride) {
		return nil
	}
	return &Alert{
		Type:     AlertDrugGender,
		Severity: SeverityMajor,
		Message:  fmt.Sprintf("%s is contraindicated in female patients", req.Drug.Name),
	}
}

func gpiClass(gpi string) string {
	if len(gpi) < 2 {
		return ""
	}
	return gpi[:2]
}

func gpiSubclass(gpi string) string {
	if len(gpi) < 6 {
		return ""
	}
	return gpi[:6]
}
