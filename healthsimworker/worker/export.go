package worker

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/fhir"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/hl7v2"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/ncpdp"
	"github.com/mark64oswald/healthsim-core/healthsim/formats/x12"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/member"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
	"github.com/mark64oswald/healthsim-core/healthsim/metrics"
)

// writeExportFile generates the cohort described by jobArgs and writes it
// in the requested format to dirPath/fileName. The same seed yields the
// same cohort, so a retried queue job reproduces its file. Returns the
// file size.
func writeExportFile(ctx context.Context, dirPath, fileName string, jobArgs models.JobEnqueueArgs) (int64, error) {
	close := metrics.NewChild(ctx, fmt.Sprintf("writeExportFile-%s-%s", jobArgs.Population, jobArgs.Format))
	defer close()

	f, err := os.Create(fmt.Sprintf("%s/%s", dirPath, fileName))
	if err != nil {
		return 0, errors.Wrap(err, "could not create export file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	switch jobArgs.Population {
	case constants.PopulationPatient:
		err = writePatients(w, jobArgs)
	case constants.PopulationMember:
		err = writeMembers(w, jobArgs)
	case constants.PopulationRxMember:
		err = writeRxMembers(ctx, w, jobArgs)
	default:
		err = fmt.Errorf("unsupported population %s", jobArgs.Population)
	}
	if err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func writePatients(w io.Writer, jobArgs models.JobEnqueueArgs) error {
	g := patient.New(jobArgs.Seed)
	patients, err := g.GenerateBatch(jobArgs.Count, patient.Options{Scenario: jobArgs.Scenario})
	if err != nil {
		return errors.Wrap(err, "could not generate patient cohort")
	}

	switch jobArgs.Format {
	case constants.FormatFHIR:
		e := fhir.NewExporter()
		var resources []interface{}
		for _, p := range patients {
			resources = append(resources, e.Resources(p)...)
		}
		return fhir.WriteNDJSON(w, resources)
	case constants.FormatHL7:
		b := &hl7v2.Builder{}
		for _, p := range patients {
			for _, enc := range p.Encounters {
				if _, err := io.WriteString(w, b.AdmitA01(p, enc)); err != nil {
					return err
				}
				if enc.DischargeDate != nil {
					if _, err := io.WriteString(w, b.DischargeA03(p, enc)); err != nil {
						return err
					}
				}
			}
			for _, med := range p.Medications {
				if _, err := io.WriteString(w, b.OrderO01(p, med)); err != nil {
					return err
				}
			}
			if len(p.Observations) > 0 {
				if _, err := io.WriteString(w, b.ResultR01(p)); err != nil {
					return err
				}
			}
		}
		return nil
	case constants.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"patient_id", "mrn", "first_name", "last_name", "gender", "birth_date", "city", "state", "diagnoses", "encounters"}); err != nil {
			return err
		}
		for _, p := range patients {
			row := []string{
				p.PatientID, p.MRN, p.FirstName, p.LastName, p.Gender,
				p.BirthDate.Format("2006-01-02"),
				p.Address.City, p.Address.State,
				strconv.Itoa(len(p.Diagnoses)), strconv.Itoa(len(p.Encounters)),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported format %s for population %s", jobArgs.Format, jobArgs.Population)
	}
}

func writeMembers(w io.Writer, jobArgs models.JobEnqueueArgs) error {
	g := member.New(jobArgs.Seed)
	opts := member.Options{PlanCode: jobArgs.PlanCode}
	claimWindowEnd := jobArgs.TransactionTime
	if claimWindowEnd.IsZero() {
		claimWindowEnd = time.Now()
	}
	claimWindowStart := claimWindowEnd.AddDate(-1, 0, 0)

	members := make([]*member.Member, 0, jobArgs.Count)
	for i := 0; i < jobArgs.Count; i++ {
		m, err := g.GenerateMemberWithClaims(opts, 3, claimWindowStart, claimWindowEnd)
		if err != nil {
			return errors.Wrap(err, "could not generate member cohort")
		}
		members = append(members, m)
	}

	switch jobArgs.Format {
	case constants.FormatX12:
		b := &x12.Builder{}
		for _, doc := range []string{b.Generate834(members), b.Generate837P(members), b.Generate835(members)} {
			if _, err := io.WriteString(w, doc); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	case constants.FormatFHIR:
		e := fhir.NewExporter()
		resources := make([]interface{}, 0, len(members))
		for _, m := range members {
			resources = append(resources, e.Coverage(m))
		}
		return fhir.WriteNDJSON(w, resources)
	case constants.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"member_id", "subscriber_id", "first_name", "last_name", "gender", "birth_date", "plan_code", "group_id", "relationship", "status", "coverage_start", "claims"}); err != nil {
			return err
		}
		for _, m := range members {
			row := []string{
				m.MemberID, m.SubscriberID,
				m.Demographics.FirstName, m.Demographics.LastName, m.Demographics.Gender,
				m.Demographics.BirthDate.Format("2006-01-02"),
				m.PlanCode, m.GroupID, m.Relationship, m.Status,
				m.CoverageStart.Format("2006-01-02"),
				strconv.Itoa(len(m.Claims)),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported format %s for population %s", jobArgs.Format, jobArgs.Population)
	}
}

func writeRxMembers(ctx context.Context, w io.Writer, jobArgs models.JobEnqueueArgs) error {
	g := rxmember.New(jobArgs.Seed)
	members, err := g.GenerateBatch(jobArgs.Count, jobArgs.BIN, jobArgs.PCN, jobArgs.GroupNumber, rxmember.Options{})
	if err != nil {
		return errors.Wrap(err, "could not generate rx member cohort")
	}

	switch jobArgs.Format {
	case constants.FormatNCPDP:
		f := formulary.NewGenerator().StandardCommercial()
		engine := adjudication.NewEngine(f)
		drugs := f.Drugs()
		sort.Slice(drugs, func(i, j int) bool { return drugs[i].NDC < drugs[j].NDC })

		serviceDate := jobArgs.TransactionTime
		if serviceDate.IsZero() {
			serviceDate = time.Now()
		}

		for i, m := range members {
			d := drugs[i%len(drugs)]
			claim := adjudication.Claim{
				ClaimID:        fmt.Sprintf("RX%d-%d", jobArgs.ID, i+1),
				MemberID:       m.MemberID,
				NDC:            d.NDC,
				GPI:            d.GPI,
				DrugName:       d.Name,
				Quantity:       30,
				DaysSupply:     30,
				IngredientCost: ingredientCostForTier(d.Tier),
				ServiceDate:    serviceDate,
			}
			req := ncpdp.NewRequest(m, claim)
			resp, err := engine.Adjudicate(ctx, claim, m)
			if err != nil {
				return errors.Wrap(err, "could not adjudicate generated claim")
			}
			if _, err := io.WriteString(w, req.Encode()+"\n"); err != nil {
				return err
			}
			if _, err := io.WriteString(w, ncpdp.EncodeResponse(req, resp)+"\n"); err != nil {
				return err
			}
		}
		return nil
	case constants.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"member_id", "cardholder_id", "person_code", "bin", "pcn", "group_number", "first_name", "last_name", "date_of_birth", "active", "deductible_met", "oop_met"}); err != nil {
			return err
		}
		for _, m := range members {
			row := []string{
				m.MemberID, m.CardholderID, m.PersonCode,
				m.BIN, m.PCN, m.GroupNumber,
				m.FirstName, m.LastName,
				m.DateOfBirth.Format("2006-01-02"),
				strconv.FormatBool(m.Active),
				m.DeductibleMet.StringFixed(2), m.OOPMet.StringFixed(2),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported format %s for population %s", jobArgs.Format, jobArgs.Population)
	}
}

// ingredientCostForTier gives a plausible submitted cost by formulary
// tier so generated claims exercise deductible and copay pricing.
func ingredientCostForTier(tier int) decimal.Decimal {
	switch tier {
	case formulary.TierPreferredGeneric:
		return decimal.NewFromInt(12)
	case formulary.TierNonPreferredGeneric:
		return decimal.NewFromInt(34)
	case formulary.TierPreferredBrand:
		return decimal.NewFromInt(180)
	case formulary.TierNonPreferredBrand:
		return decimal.NewFromInt(420)
	default:
		return decimal.NewFromInt(5800)
	}
}
