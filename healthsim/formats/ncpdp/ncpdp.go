// Package ncpdp renders NCPDP Telecommunication Standard D.0 claim
// billing requests and responses.
package ncpdp

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

// D.0 control characters.
const (
	SegmentSeparator = "\x1e"
	GroupSeparator   = "\x1d"
	FieldSeparator   = "\x1c"
)

// Transaction codes.
const (
	TransactionBilling  = "B1"
	TransactionReversal = "B2"
)

const versionRelease = "D0"

const dateFmt = "20060102"

// field renders one field as separator + two character ID + value.
func field(id, value string) string {
	return FieldSeparator + id + value
}

// segment renders a segment identification field (AM..) followed by
// its fields.
func segment(segmentID string, fields ...string) string {
	return SegmentSeparator + field("AM", segmentID) + strings.Join(fields, "")
}

// amount renders a dollar amount as cents without a decimal point.
func amount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", "", 1)
}

// Request is a B1 claim billing transmission.
type Request struct {
	BIN             string
	PCN             string
	GroupNumber     string
	TransactionCode string

	ServiceProviderID string // pharmacy NPI
	DateOfService     time.Time

	CardholderID string
	PersonCode   string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       string

	PrescriptionRef string
	NDC             string
	Quantity        int
	DaysSupply      int
	PriorAuthNumber string
}

// NewRequest builds a B1 request from a member and an adjudication
// claim.
func NewRequest(m *rxmember.RxMember, claim adjudication.Claim) Request {
	return Request{
		BIN:               m.BIN,
		PCN:               m.PCN,
		GroupNumber:       m.GroupNumber,
		TransactionCode:   TransactionBilling,
		ServiceProviderID: claim.PharmacyNPI,
		DateOfService:     claim.ServiceDate,
		CardholderID:      m.CardholderID,
		PersonCode:        m.PersonCode,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		DateOfBirth:       m.DateOfBirth,
		Gender:            m.Gender,
		PrescriptionRef:   claim.ClaimID,
		NDC:               claim.NDC,
		Quantity:          claim.Quantity,
		DaysSupply:        claim.DaysSupply,
		PriorAuthNumber:   claim.PriorAuthNumber,
	}
}

// Encode renders the transmission: fixed header, then insurance,
// patient and claim segments.
func (r Request) Encode() string {
	code := r.TransactionCode
	if code == "" {
		code = TransactionBilling
	}

	var sb strings.Builder
	// Transmission header: BIN, version, transaction code, PCN,
	// transaction count, provider ID qualifier and ID, date of service.
	sb.WriteString(fmt.Sprintf("%06s%s%s%-10s%d", r.BIN, versionRelease, code, r.PCN, 1))
	sb.WriteString("01") // service provider ID qualifier: NPI
	sb.WriteString(fmt.Sprintf("%-15s", r.ServiceProviderID))
	sb.WriteString(r.DateOfService.Format(dateFmt))

	sb.WriteString(segment("04",
		field("C2", r.CardholderID),
		field("C1", r.GroupNumber),
		field("C3", r.PersonCode),
	))
	genderCode := "0"
	switch r.Gender {
	case "M":
		genderCode = "1"
	case "F":
		genderCode = "2"
	}
	sb.WriteString(segment("01",
		field("C4", r.DateOfBirth.Format(dateFmt)),
		field("C5", genderCode),
		field("CA", r.FirstName),
		field("CB", r.LastName),
	))

	claimFields := []string{
		field("EM", "1"), // rx billing qualifier
		field("D2", r.PrescriptionRef),
		field("E1", "03"), // product ID qualifier: NDC
		field("D7", r.NDC),
		field("E7", fmt.Sprintf("%d", r.Quantity)),
		field("D5", fmt.Sprintf("%d", r.DaysSupply)),
	}
	if code == TransactionReversal {
		claimFields = claimFields[:4]
	} else if r.PriorAuthNumber != "" {
		claimFields = append(claimFields, field("EV", r.PriorAuthNumber))
	}
	sb.WriteString(segment("07", claimFields...))
	return sb.String()
}

// Reversal builds the B2 transaction that backs out this request.
func (r Request) Reversal() Request {
	rev := r
	rev.TransactionCode = TransactionReversal
	return rev
}

// EncodeResponse renders the D.0 response for an adjudication
// outcome: response status with authorization or reject codes, a DUR
// segment per alert, and pricing for paid claims.
func EncodeResponse(req Request, resp *adjudication.Response) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s%s%d", versionRelease, req.TransactionCode, 1))
	sb.WriteString("A") // transmission accepted

	statusFields := []string{field("AN", resp.Status)}
	if resp.Paid() {
		statusFields = append(statusFields, field("F3", resp.AuthorizationNumber))
	} else {
		statusFields = append(statusFields,
			field("FA", "1"),
			field("FB", resp.RejectCode),
			field("F4", resp.RejectMessage),
		)
	}
	sb.WriteString(segment("21", statusFields...))

	if len(resp.DURAlerts) > 0 {
		durFields := make([]string, 0, len(resp.DURAlerts)*3)
		for _, a := range resp.DURAlerts {
			durFields = append(durFields,
				field("E4", a.Type),
				field("FS", fmt.Sprintf("%d", a.Severity)),
				field("FI", a.Message),
			)
		}
		sb.WriteString(segment("24", durFields...))
	}

	if resp.Paid() {
		sb.WriteString(segment("23",
			field("F5", amount(resp.PatientPay)),
			field("F6", amount(resp.IngredientCost)),
			field("F7", amount(resp.DispensingFee)),
			field("F9", amount(resp.TotalCost)),
			field("FM", amount(resp.PlanPaid)),
		))
	}
	return sb.String()
}
