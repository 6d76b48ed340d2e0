// Package healthsimmcp exposes the synthetic data generators and the
// claims pipeline as MCP tools over stdio.
package healthsimmcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mark64oswald/healthsim-core/healthsim/adjudication"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/dur"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/log"
)

const serverName = "healthsim"

// NewServer builds the MCP server with every tool registered. The
// formulary and adjudication engine are shared across tool calls.
func NewServer() *mcp.Server {
	f := formulary.NewGenerator().StandardCommercial()
	t := &tools{
		formulary: f,
		engine:    adjudication.NewEngine(f),
		validator: dur.NewValidator(),
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: constants.Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_patient",
		Description: "Generates synthetic patients with clinical histories",
	}, t.generatePatient)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_member",
		Description: "Generates synthetic insurance members with plans and claims",
	}, t.generateMember)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_rx_member",
		Description: "Generates synthetic pharmacy benefit members",
	}, t.generateRxMember)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_formulary",
		Description: "Looks up formulary coverage for a drug by NDC",
	}, t.checkFormulary)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "screen_dur",
		Description: "Screens a prescription for drug utilization review alerts",
	}, t.screenDUR)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "adjudicate_claim",
		Description: "Adjudicates a pharmacy claim against the formulary and member benefits",
	}, t.adjudicateClaim)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_scenarios",
		Description: "Lists the available clinical scenarios for patient generation",
	}, t.listScenarios)

	return server
}

// Serve runs the MCP server on stdio until the context is cancelled.
func Serve(ctx context.Context) error {
	log.MCP.Info("Starting MCP server on stdio")
	return NewServer().Run(ctx, &mcp.StdioTransport{})
}
