package healthsimmcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/member"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
)

type tools struct {
	formulary *formulary.Formulary
	engine    *adjudication.Engine
	validator *dur.Validator
}

type generatePatientInput struct {
	Count    int    `json:"count,omitempty" jsonschema:"number of patients to generate, defaults to 1"`
	Seed     int64  `json:"seed,omitempty" jsonschema:"generator seed for reproducible output, random when omitted"`
	Scenario string `json:"scenario,omitempty" jsonschema:"clinical scenario to apply, see list_scenarios"`
}

type generatePatientResult struct {
	Patients []*patient.Patient `json:"patients"`
}

func (t *tools) generatePatient(ctx context.Context, _ *mcp.CallToolRequest, input generatePatientInput) (*mcp.CallToolResult, generatePatientResult, error) {
	g := patient.New(toolSeed(input.Seed))
	patients, err := g.GenerateBatch(toolCount(input.Count), patient.Options{Scenario: input.Scenario})
	if err != nil {
		return nil, generatePatientResult{}, fmt.Errorf("generate patients: %w", err)
	}
	return nil, generatePatientResult{Patients: patients}, nil
}

type generateMemberInput struct {
	Count    int    `json:"count,omitempty" jsonschema:"number of members to generate, defaults to 1"`
	Seed     int64  `json:"seed,omitempty" jsonschema:"generator seed for reproducible output, random when omitted"`
	PlanCode string `json:"plan_code,omitempty" jsonschema:"plan to enroll members in, random plan when omitted"`
	Claims   int    `json:"claims,omitempty" jsonschema:"number of medical claims per member"`
}

type generateMemberResult struct {
	Members []*member.Member `json:"members"`
}

func (t *tools) generateMember(ctx context.Context, _ *mcp.CallToolRequest, input generateMemberInput) (*mcp.CallToolResult, generateMemberResult, error) {
	g := member.New(toolSeed(input.Seed))
	opts := member.Options{PlanCode: input.PlanCode}

	count := toolCount(input.Count)
	members := make([]*member.Member, 0, count)
	for i := 0; i < count; i++ {
		var (
			m   *member.Member
			err error
		)
		if input.Claims > 0 {
			now := time.Now()
			m, err = g.GenerateMemberWithClaims(opts, input.Claims, now.AddDate(-1, 0, 0), now)
		} else {
			m, err = g.GenerateMember(opts)
		}
		if err != nil {
			return nil, generateMemberResult{}, fmt.Errorf("generate members: %w", err)
		}
		members = append(members, m)
	}
	return nil, generateMemberResult{Members: members}, nil
}

type generateRxMemberInput struct {
	Count       int    `json:"count,omitempty" jsonschema:"number of members to generate, defaults to 1"`
	Seed        int64  `json:"seed,omitempty" jsonschema:"generator seed for reproducible output, random when omitted"`
	BIN         string `json:"bin,omitempty" jsonschema:"card BIN, defaults to the test BIN"`
	PCN         string `json:"pcn,omitempty" jsonschema:"card PCN, defaults to the test PCN"`
	GroupNumber string `json:"group_number,omitempty" jsonschema:"card group number, defaults to the test group"`
}

type generateRxMemberResult struct {
	Members []*rxmember.RxMember `json:"members"`
}

func (t *tools) generateRxMember(ctx context.Context, _ *mcp.CallToolRequest, input generateRxMemberInput) (*mcp.CallToolResult, generateRxMemberResult, error) {
	bin, pcn, group := input.BIN, input.PCN, input.GroupNumber
	if bin == "" {
		bin = constants.TestBIN
	}
	if pcn == "" {
		pcn = constants.TestPCN
	}
	if group == "" {
		group = constants.TestGroup
	}

	g := rxmember.New(toolSeed(input.Seed))
	members, err := g.GenerateBatch(toolCount(input.Count), bin, pcn, group, rxmember.Options{})
	if err != nil {
		return nil, generateRxMemberResult{}, fmt.Errorf("generate rx members: %w", err)
	}
	return nil, generateRxMemberResult{Members: members}, nil
}

type checkFormularyInput struct {
	NDC string `json:"ndc" jsonschema:"11 digit NDC of the drug to look up"`
}

func (t *tools) checkFormulary(ctx context.Context, _ *mcp.CallToolRequest, input checkFormularyInput) (*mcp.CallToolResult, formulary.CoverageStatus, error) {
	if input.NDC == "" {
		return nil, formulary.CoverageStatus{}, fmt.Errorf("ndc is required")
	}
	return nil, t.formulary.CheckCoverage(input.NDC), nil
}

func (t *tools) screenDUR(ctx context.Context, _ *mcp.CallToolRequest, input dur.Request) (*mcp.CallToolResult, dur.Result, error) {
	return nil, t.validator.Validate(input), nil
}

type adjudicateClaimInput struct {
	Claim  adjudication.Claim `json:"claim" jsonschema:"pharmacy claim to adjudicate"`
	Member rxmember.RxMember  `json:"member" jsonschema:"pharmacy member the claim is billed for"`
}

func (t *tools) adjudicateClaim(ctx context.Context, _ *mcp.CallToolRequest, input adjudicateClaimInput) (*mcp.CallToolResult, adjudication.Response, error) {
	resp, err := t.engine.Adjudicate(ctx, input.Claim, &input.Member)
	if err != nil {
		return nil, adjudication.Response{}, fmt.Errorf("adjudicate claim: %w", err)
	}
	return nil, *resp, nil
}

type listScenariosInput struct{}

type listScenariosResult struct {
	Scenarios []string `json:"scenarios"`
}

func (t *tools) listScenarios(ctx context.Context, _ *mcp.CallToolRequest, _ listScenariosInput) (*mcp.CallToolResult, listScenariosResult, error) {
	return nil, listScenariosResult{Scenarios: patient.ListScenarios()}, nil
}

func toolCount(count int) int {
	if count <= 0 {
		return 1
	}
	return count
}

func toolSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}
