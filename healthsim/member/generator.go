package member

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/synth"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
)

// Generator produces synthetic insurance members. The same seed always
// yields the same sequence of members. Not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Options constrain a generated member. Zero values leave the
// corresponding attribute unconstrained.
type Options struct {
	PlanCode string
	AgeMin   int
	AgeMax   int
	Gender   string
	// Status is "active" or "termed". Defaults to active for most
	// members with an occasional termed member.
	Status string
}

var cptCatalog = []struct {
	code, description string
	lowCharge, highCharge int
}{
	{"99213", "Office or other outpatient visit, established patient, low complexity", 125, 250},
	{"99214", "Office or other outpatient visit, established patient, moderate complexity", 180, 350},
	{"80053", "Comprehensive metabolic panel", 45, 120},
	{"85025", "Complete blood count with differential", 30, 90},
	{"93000", "Electrocardiogram, routine, with interpretation", 75, 200},
	{"99285", "Emergency department visit, high severity", 700, 2200},
}

var claimDiagnoses = []string{"Z00.00", "I10", "E11.9", "J06.9", "M54.5", "E78.5"}

// GenerateMember builds one member honoring opts.
func (g *Generator) GenerateMember(opts Options) (*Member, error) {
	m, err := g.newMember(opts, RelationshipSubscriber, "", "")
	if err != nil {
		return nil, err
	}
	m.SubscriberID = m.MemberID
	return m, nil
}

// GenerateBatch builds a population of count members.
func (g *Generator) GenerateBatch(count int, opts Options) ([]*Member, error) {
	members := make([]*Member, 0, count)
	for i := 0; i < count; i++ {
		m, err := g.GenerateMember(opts)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// GenerateFamily builds a subscriber plus dependents sharing the
// subscriber's ID, plan, group and coverage dates. The subscriber is
// always first in the returned slice.
func (g *Generator) GenerateFamily(planCode string, spouse bool, children int) ([]*Member, error) {
	sub, err := g.GenerateMember(Options{PlanCode: planCode, AgeMin: 28, AgeMax: 55, Status: StatusActive})
	if err != nil {
		return nil, err
	}
	family := []*Member{sub}

	if spouse {
		spouseGender := "F"
		if sub.Demographics.Gender == "F" {
			spouseGender = "M"
		}
		sp, err := g.newMember(Options{
			PlanCode: planCode,
			AgeMin:   sub.Demographics.Age() - 5,
			AgeMax:   sub.Demographics.Age() + 5,
			Gender:   spouseGender,
			Status:   StatusActive,
		}, RelationshipSpouse, sub.SubscriberID, sub.Demographics.LastName)
		if err != nil {
			return nil, err
		}
		sp.CoverageStart = sub.CoverageStart
		family = append(family, sp)
	}

	for i := 0; i < children; i++ {
		child, err := g.newMember(Options{
			PlanCode: planCode,
			AgeMin:   1,
			AgeMax:   17,
			Status:   StatusActive,
		}, RelationshipChild, sub.SubscriberID, sub.Demographics.LastName)
		if err != nil {
			return nil, err
		}
		child.CoverageStart = sub.CoverageStart
		family = append(family, child)
	}
	return family, nil
}

// GenerateMemberWithClaims builds a member and attaches claimCount
// professional claims with service dates in [from, to].
func (g *Generator) GenerateMemberWithClaims(opts Options, claimCount int, from, to time.Time) (*Member, error) {
	m, err := g.GenerateMember(opts)
	if err != nil {
		return nil, err
	}
	plan, err := GetPlan(m.PlanCode)
	if err != nil {
		return nil, err
	}
	for i := 0; i < claimCount; i++ {
		m.Claims = append(m.Claims, g.generateClaim(plan, from, to))
	}
	return m, nil
}

func (g *Generator) newMember(opts Options, relationship, subscriberID, lastName string) (*Member, error) {
	defer synth.Bind(g.rng)()

	planCode := opts.PlanCode
	if planCode == "" {
		all := ListPlans()
		planCode = all[g.rng.Intn(len(all))].Code
	}
	plan, err := GetPlan(planCode)
	if err != nil {
		return nil, err
	}

	gender := opts.Gender
	if gender == "" {
		gender = randomdata.StringSample("M", "F")
	}
	nameGender := randomdata.Male
	if gender == "F" {
		nameGender = randomdata.Female
	}
	if lastName == "" {
		lastName = randomdata.LastName()
	}

	ageMin, ageMax := opts.AgeMin, opts.AgeMax
	if ageMin == 0 && ageMax == 0 {
		ageMin, ageMax = 18, 75
	}
	if ageMax < ageMin {
		return nil, fmt.Errorf("invalid age range %d-%d", ageMin, ageMax)
	}
	age := ageMin
	if ageMax > ageMin {
		age += g.rng.Intn(ageMax - ageMin + 1)
	}

	status := opts.Status
	if status == "" {
		status = StatusActive
		if g.rng.Float64() < 0.08 {
			status = StatusTermed
		}
	}
	if status != StatusActive && status != StatusTermed {
		return nil, fmt.Errorf("invalid status %q", opts.Status)
	}

	now := time.Now()
	coverageStart := now.AddDate(0, 0, -(30 + g.rng.Intn(700)))

	m := &Member{
		MemberID:     "M" + randomdata.StringNumberExt(1, "", 9),
		SubscriberID: subscriberID,
		Demographics: Demographics{
			FirstName: randomdata.FirstName(nameGender),
			LastName:  lastName,
			Gender:    gender,
			BirthDate: now.AddDate(-age, 0, -g.rng.Intn(360)),
			Line:      fmt.Sprintf("%d %s", randomdata.Number(100, 9999), randomdata.StringSample("Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Blvd")),
			City:      randomdata.City(),
			State:     randomdata.State(randomdata.Large),
			Zip:       randomdata.StringNumberExt(1, "", 5),
			Phone: fmt.Sprintf("(%d) %s-%s", randomdata.Number(201, 989),
				randomdata.StringNumberExt(1, "", 3), randomdata.StringNumberExt(1, "", 4)),
		},
		PlanCode:      planCode,
		GroupID:       "GRP" + randomdata.StringNumberExt(1, "", 6),
		Relationship:  relationship,
		Status:        status,
		CoverageStart: coverageStart,
		Accumulators:  g.newAccumulators(plan),
	}
	if status == StatusTermed {
		end := coverageStart.AddDate(0, 0, 30+g.rng.Intn(300))
		if end.After(now) {
			end = now
		}
		m.CoverageEnd = &end
	}
	return m, nil
}

func (g *Generator) newAccumulators(plan Plan) map[string]*Accumulator {
	deductibleUsed := decimal.NewFromFloat(g.rng.Float64()).Mul(plan.DeductibleIndividual).Round(2)
	// OOP used is at least the deductible spent so far.
	oopUsed := deductibleUsed.Add(decimal.NewFromFloat(g.rng.Float64() * 500).Round(2))
	if oopUsed.GreaterThan(plan.OOPMaxIndividual) {
		oopUsed = plan.OOPMaxIndividual
	}
	return map[string]*Accumulator{
		"deductible": {Used: deductibleUsed, Limit: plan.DeductibleIndividual},
		"oop":        {Used: oopUsed, Limit: plan.OOPMaxIndividual},
	}
}

func (g *Generator) generateClaim(plan Plan, from, to time.Time) Claim {
	defer synth.Bind(g.rng)()

	lineCount := 1 + g.rng.Intn(3)
	serviceDate := from
	if days := int(to.Sub(from).Hours() / 24); days > 0 {
		serviceDate = from.AddDate(0, 0, g.rng.Intn(days+1))
	}

	status := ClaimStatusPaid
	switch roll := g.rng.Float64(); {
	case roll < 0.1:
		status = ClaimStatusDenied
	case roll < 0.2:
		status = ClaimStatusPending
	}

	claim := Claim{
		ClaimID:      "CLM" + randomdata.StringNumberExt(1, "", 10),
		ServiceDate:  serviceDate,
		ProviderName: fmt.Sprintf("Dr. %s %s", randomdata.FirstName(randomdata.RandomGender), randomdata.LastName()),
		ProviderNPI:  g.npi(),
		Status:       status,
	}

	for i := 0; i < lineCount; i++ {
		svc := cptCatalog[g.rng.Intn(len(cptCatalog))]
		charge := decimal.NewFromInt(int64(svc.lowCharge + g.rng.Intn(svc.highCharge-svc.lowCharge+1)))
		allowed := charge.Mul(decimal.NewFromFloat(0.6)).Round(2)
		paid := decimal.Zero
		if status == ClaimStatusPaid {
			paid = allowed.Mul(decimal.NewFromInt(1).Sub(plan.Coinsurance)).Round(2)
		}
		line := ClaimLine{
			CPT:           svc.code,
			Description:   svc.description,
			DiagnosisCode: claimDiagnoses[g.rng.Intn(len(claimDiagnoses))],
			Charge:        charge,
			Allowed:       allowed,
			Paid:          paid,
		}
		claim.Lines = append(claim.Lines, line)
		claim.TotalCharge = claim.TotalCharge.Add(line.Charge)
		claim.TotalAllowed = claim.TotalAllowed.Add(line.Allowed)
		claim.TotalPaid = claim.TotalPaid.Add(line.Paid)
	}
	return claim
}

// npi returns a ten digit NPI with a valid check digit computed over
// the 80840 issuer prefix.
func (g *Generator) npi() string {
	base := strconv.Itoa(1 + g.rng.Intn(9))
	for i := 0; i < 8; i++ {
		base += strconv.Itoa(g.rng.Intn(10))
	}
	return base + strconv.Itoa(utils.Luhn("80840"+base))
}
