// Package rxmember generates synthetic pharmacy benefit members
// identified by the NCPDP routing triple (BIN, PCN, group number).
package rxmember

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/synth"
)

// RxMember is a synthetic pharmacy benefit member.
type RxMember struct {
	MemberID     string `json:"member_id"`
	CardholderID string `json:"cardholder_id"`
	// PersonCode distinguishes family members on one card: 01 is the
	// cardholder, 02 the spouse, 03 and up are dependents.
	PersonCode string `json:"person_code"`

	BIN         string `json:"bin"`
	PCN         string `json:"pcn"`
	GroupNumber string `json:"group_number"`

	// Active reports whether coverage is in force on the card.
	Active bool `json:"active"`

	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      string    `json:"gender"`

	DeductibleMet   decimal.Decimal `json:"deductible_met"`
	DeductibleLimit decimal.Decimal `json:"deductible_limit"`
	OOPMet          decimal.Decimal `json:"oop_met"`
	OOPLimit        decimal.Decimal `json:"oop_limit"`
}

// Age is the member's age in whole years as of now.
func (m *RxMember) Age() int {
	now := time.Now()
	years := now.Year() - m.DateOfBirth.Year()
	if now.YearDay() < m.DateOfBirth.YearDay() {
		years--
	}
	return years
}

// Generator produces synthetic pharmacy members. The same seed always
// yields the same sequence of members. Not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Options constrain a generated member.
type Options struct {
	AgeMin     int
	AgeMax     int
	Gender     string
	PersonCode string
}

// Generate builds one member routed under the given BIN, PCN and group.
func (g *Generator) Generate(bin, pcn, groupNumber string, opts Options) (*RxMember, error) {
	defer synth.Bind(g.rng)()

	if bin == "" || pcn == "" || groupNumber == "" {
		return nil, fmt.Errorf("bin, pcn and group number are required")
	}

	gender := opts.Gender
	if gender == "" {
		gender = randomdata.StringSample("M", "F")
	}
	nameGender := randomdata.Male
	if gender == "F" {
		nameGender = randomdata.Female
	}

	ageMin, ageMax := opts.AgeMin, opts.AgeMax
	if ageMin == 0 && ageMax == 0 {
		ageMin, ageMax = 18, 85
	}
	if ageMax < ageMin {
		return nil, fmt.Errorf("invalid age range %d-%d", ageMin, ageMax)
	}
	age := ageMin
	if ageMax > ageMin {
		age += g.rng.Intn(ageMax - ageMin + 1)
	}

	personCode := opts.PersonCode
	if personCode == "" {
		personCode = "01"
	}

	deductibleLimit := decimal.NewFromInt(int64(50 * (1 + g.rng.Intn(10)))) // 50 to 500
	deductibleMet := decimal.NewFromFloat(g.rng.Float64()).Mul(deductibleLimit).Round(2)
	oopLimit := decimal.NewFromInt(int64(500 * (2 + g.rng.Intn(9)))) // 1000 to 5000
	oopMet := deductibleMet.Add(decimal.NewFromFloat(g.rng.Float64() * 300).Round(2))
	if oopMet.GreaterThan(oopLimit) {
		oopMet = oopLimit
	}

	cardholderID := "CH" + randomdata.StringNumberExt(1, "", 9)
	return &RxMember{
		MemberID:        cardholderID + personCode,
		CardholderID:    cardholderID,
		PersonCode:      personCode,
		BIN:             bin,
		PCN:             pcn,
		GroupNumber:     groupNumber,
		Active:          true,
		FirstName:       randomdata.FirstName(nameGender),
		LastName:        randomdata.LastName(),
		DateOfBirth:     time.Now().AddDate(-age, 0, -g.rng.Intn(360)),
		Gender:          gender,
		DeductibleMet:   deductibleMet,
		DeductibleLimit: deductibleLimit,
		OOPMet:          oopMet,
		OOPLimit:        oopLimit,
	}, nil
}

// GenerateBatch builds count members under one routing triple.
func (g *Generator) GenerateBatch(count int, bin, pcn, groupNumber string, opts Options) ([]*RxMember, error) {
	members := make([]*RxMember, 0, count)
	for i := 0; i < count; i++ {
		m, err := g.Generate(bin, pcn, groupNumber, opts)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
