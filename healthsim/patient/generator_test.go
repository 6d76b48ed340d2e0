package patient

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePatientReproducible(t *testing.T) {
	p1, err := New(42).GeneratePatient(Options{Scenario: "cardiac"})
	require.NoError(t, err)
	p2, err := New(42).GeneratePatient(Options{Scenario: "cardiac"})
	require.NoError(t, err)

	assert.Equal(t, p1.PatientID, p2.PatientID)
	assert.Equal(t, p1.MRN, p2.MRN)
	assert.Equal(t, p1.FullName(), p2.FullName())
	assert.Equal(t, p1.Diagnoses, p2.Diagnoses)
	assert.Equal(t, p1.Medications, p2.Medications)

	p3, err := New(99).GeneratePatient(Options{Scenario: "cardiac"})
	require.NoError(t, err)
	assert.NotEqual(t, p1.PatientID, p3.PatientID)
}

func TestGeneratePatientConstraints(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"elderly", Options{AgeMin: 65, AgeMax: 80}},
		{"female", Options{Gender: "F"}},
		{"male cardiac", Options{Scenario: "cardiac", AgeMin: 50, AgeMax: 70, Gender: "M"}},
	}

	gen := New(123)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := gen.GeneratePatient(tt.opts)
			require.NoError(t, err)
			if tt.opts.Gender != "" {
				assert.Equal(t, tt.opts.Gender, p.Gender)
			}
			if tt.opts.AgeMax > 0 {
				assert.GreaterOrEqual(t, p.Age(), tt.opts.AgeMin)
				assert.LessOrEqual(t, p.Age(), tt.opts.AgeMax)
			}
			assert.NotEmpty(t, p.PatientID)
			assert.NotEmpty(t, p.MRN)
			assert.NotEmpty(t, p.FirstName)
			assert.NotEmpty(t, p.LastName)
		})
	}
}

func TestGeneratePatientScenarioContent(t *testing.T) {
	gen := New(7)

	diabetic, err := gen.GeneratePatient(Options{Scenario: "diabetes"})
	require.NoError(t, err)
	require.NotEmpty(t, diabetic.Diagnoses)
	assert.Equal(t, "E11.9", diabetic.Diagnoses[0].Code)
	assert.NotEmpty(t, diabetic.Observations)
	assert.NotEmpty(t, diabetic.Encounters)

	cardiac, err := gen.GeneratePatient(Options{Scenario: "cardiac"})
	require.NoError(t, err)
	require.NotEmpty(t, cardiac.Diagnoses)
	assert.Equal(t, "I25.10", cardiac.Diagnoses[0].Code)
}

func TestGeneratePatientConditions(t *testing.T) {
	p, err := New(11).GeneratePatient(Options{Conditions: []string{"diabetes"}})
	require.NoError(t, err)

	var codes []string
	for _, dx := range p.Diagnoses {
		codes = append(codes, dx.Code)
	}
	assert.Contains(t, codes, "E11.9")
}

func TestGeneratePatientErrors(t *testing.T) {
	gen := New(1)

	_, err := gen.GeneratePatient(Options{Scenario: "unobtainium"})
	assert.Error(t, err)

	_, err = gen.GeneratePatient(Options{Conditions: []string{"unobtainium"}})
	assert.Error(t, err)

	_, err = gen.GeneratePatient(Options{Gender: "X"})
	assert.Error(t, err)

	_, err = gen.GeneratePatient(Options{AgeMin: 60, AgeMax: 40})
	assert.Error(t, err)
}

func TestGenerateBatch(t *testing.T) {
	patients, err := New(456).GenerateBatch(10, Options{})
	require.NoError(t, err)
	require.Len(t, patients, 10)

	seen := make(map[string]bool)
	for _, p := range patients {
		assert.False(t, seen[p.PatientID], "duplicate patient ID %s", p.PatientID)
		seen[p.PatientID] = true
	}
}

// Two generators running in parallel must each produce the batch their
// own seed dictates, matching a single threaded run with the same seed.
func TestGenerateBatchConcurrentSeedsIndependent(t *testing.T) {
	const n = 50

	baselineA, err := New(42).GenerateBatch(n, Options{})
	require.NoError(t, err)
	baselineB, err := New(7777).GenerateBatch(n, Options{})
	require.NoError(t, err)

	results := make([][]*Patient, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, seed := range []int64{42, 7777} {
		wg.Add(1)
		go func(i int, seed int64) {
			defer wg.Done()
			results[i], errs[i] = New(seed).GenerateBatch(n, Options{})
		}(i, seed)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	for i := range baselineA {
		assertSamePatient(t, baselineA[i], results[0][i])
		assertSamePatient(t, baselineB[i], results[1][i])
	}
}

func assertSamePatient(t *testing.T, want, got *Patient) {
	t.Helper()
	assert.Equal(t, want.PatientID, got.PatientID)
	assert.Equal(t, want.MRN, got.MRN)
	assert.Equal(t, want.FirstName, got.FirstName)
	assert.Equal(t, want.LastName, got.LastName)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.Phone, got.Phone)
}

func TestListScenarios(t *testing.T) {
	names := ListScenarios()
	for _, want := range []string{"cardiac", "ckd", "copd", "diabetes", "wellness"} {
		assert.Contains(t, names, want)
	}
	assert.IsNonDecreasing(t, names)
}
