package healthsimcli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/member"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

func runApp(t *testing.T, args ...string) (string, error) {
	app := setUpApp()
	out := &bytes.Buffer{}
	app.Writer = out
	err := app.Run(append([]string{"healthsim"}, args...))
	return out.String(), err
}

func TestAppMetadata(t *testing.T) {
	app := GetApp()
	assert.Equal(t, Name, app.Name)
	assert.Equal(t, Usage, app.Usage)
}

func TestGeneratePatientsCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "patients.ndjson")
	_, err := runApp(t, "generate-patients", "--count", "3", "--seed", "42", "--scenario", "diabetes", "--output", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var p patient.Patient
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &p))
	assert.NotEmpty(t, p.PatientID)
	assert.NotEmpty(t, p.Diagnoses)
}

func TestGenerateRxMembersCommand(t *testing.T) {
	out, err := runApp(t, "generate-rx-members", "--count", "2", "--seed", "7")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var m rxmember.RxMember
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.NotEmpty(t, m.CardholderID)
}

func TestGenerateMembersCommandDeterministic(t *testing.T) {
	first, err := runApp(t, "generate-members", "--count", "2", "--seed", "11")
	require.NoError(t, err)
	second, err := runApp(t, "generate-members", "--count", "2", "--seed", "11")
	require.NoError(t, err)

	var m1, m2 member.Member
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(first, "\n", 2)[0]), &m1))
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(second, "\n", 2)[0]), &m2))
	assert.Equal(t, m1.MemberID, m2.MemberID)
	assert.Equal(t, m1.Demographics.LastName, m2.Demographics.LastName)
}

func TestDeleteDirContentsCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ndjson"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ndjson"), []byte("y"), 0600))

	out, err := runApp(t, "delete-dir-contents", "--dirToDelete", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully deleted 2 files")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteDirContentsCommandNotADir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0600))

	_, err := runApp(t, "delete-dir-contents", "--dirToDelete", f)
	assert.Error(t, err)
}

func TestCleanupArchiveThresholdValidation(t *testing.T) {
	_, err := runApp(t, "cleanup-archive", "--threshold", "not-a-number")
	assert.Error(t, err)
}

func TestImportFormularyMissingFile(t *testing.T) {
	_, err := runApp(t, "import-formulary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}

func TestImportFormularyBadTOML(t *testing.T) {
	f := filepath.Join(t.TempDir(), "formulary.toml")
	require.NoError(t, os.WriteFile(f, []byte("drugs = \"not a table\""), 0600))

	_, err := runApp(t, "import-formulary", "--file", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse formulary file")
}

func TestImportFormularyFixtureParses(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "formulary.toml"))
	require.NoError(t, err)

	f, err := formulary.NewGenerator().FromTOML(data)
	require.NoError(t, err)
	assert.Equal(t, "custom commercial", f.Name)
	assert.Equal(t, 3, f.Len())

	status := f.CheckCoverage("00169413512")
	assert.True(t, status.Covered)
	assert.True(t, status.RequiresPA)
}
