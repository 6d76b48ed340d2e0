package patient

import (
	"embed"
	"fmt"
	"path"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed scenarios/*.toml
var scenarioFS embed.FS

// Scenario is a clinical archetype that drives which diagnoses,
// medications and observations a generated patient receives.
type Scenario struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`

	AgeMin int `toml:"age_min"`
	AgeMax int `toml:"age_max"`

	Diagnoses    []ScenarioDiagnosis   `toml:"diagnoses"`
	Medications  []ScenarioMedication  `toml:"medications"`
	Observations []ScenarioObservation `toml:"observations"`

	Encounters ScenarioEncounters `toml:"encounters"`
}

type ScenarioDiagnosis struct {
	Code        string  `toml:"code"`
	Description string  `toml:"description"`
	Probability float64 `toml:"probability"`
}

type ScenarioMedication struct {
	Name        string  `toml:"name"`
	Dose        string  `toml:"dose"`
	NDC         string  `toml:"ndc"`
	GPI         string  `toml:"gpi"`
	Probability float64 `toml:"probability"`
}

type ScenarioObservation struct {
	LOINC string  `toml:"loinc"`
	Name  string  `toml:"name"`
	Unit  string  `toml:"unit"`
	Min   float64 `toml:"min"`
	Max   float64 `toml:"max"`
}

type ScenarioEncounters struct {
	Types []string `toml:"types"`
	Min   int      `toml:"min"`
	Max   int      `toml:"max"`
}

var scenarios = loadScenarios()

func loadScenarios() map[string]Scenario {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		panic(fmt.Sprintf("reading embedded scenarios: %s", err))
	}

	loaded := make(map[string]Scenario, len(entries))
	for _, e := range entries {
		b, err := scenarioFS.ReadFile(path.Join("scenarios", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("reading scenario %s: %s", e.Name(), err))
		}
		var s Scenario
		if err := toml.Unmarshal(b, &s); err != nil {
			panic(fmt.Sprintf("parsing scenario %s: %s", e.Name(), err))
		}
		loaded[s.Name] = s
	}
	return loaded
}

// GetScenario returns the named scenario definition.
func GetScenario(name string) (Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// ListScenarios returns the available scenario names in sorted order.
func ListScenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
