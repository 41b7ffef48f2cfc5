package prompt

import (
	"fmt"
	"strings"
)

// SystemInstruction accompanies every completion request.
const SystemInstruction = "You are a contract lawyer and business expert."

// Role answers "who is Company?".
type Role string

const (
	RoleServiceProvider Role = "Company is Service Provider"
	RoleClient          Role = "Company is Client"
)

// Stance is the negotiating position the document takes.
type Stance string

const (
	ProVendor Stance = "Pro-vendor"
	ProClient Stance = "Pro-client"
)

// Sections is the fixed outline every generated SoW follows.
var Sections = []string{
	"Description",
	"Function",
	"Price",
	"Dependencies",
	"Milestones",
	"Warranties",
	"Service Levels",
	"Others",
}

// ExampleSeparator joins reference examples in the prompt.
const ExampleSeparator = "\n---\n"

// StanceFor maps a role to a stance. Anything other than the service
// provider role is treated as the client side.
func StanceFor(role Role) Stance {
	if role == RoleServiceProvider {
		return ProVendor
	}
	return ProClient
}

// ParseRole accepts the full role label or the short forms "vendor",
// "provider" and "client".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case strings.ToLower(string(RoleServiceProvider)), "vendor", "provider", "service-provider":
		return RoleServiceProvider, nil
	case strings.ToLower(string(RoleClient)), "client", "":
		return RoleClient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type GenerateInput struct {
	Role        Role
	Description string
	BaseText    string
	Examples    []string
}

// Generate builds the user prompt for a first draft.
func Generate(in GenerateInput) string {
	var b strings.Builder

	b.WriteString("You are both a contract lawyer AND a business expert.\n")
	b.WriteString("Create a detailed Scope of Work (SoW) for the business scenario described below.\n")
	fmt.Fprintf(&b, "Assume a %s stance.\n", StanceFor(in.Role))
	b.WriteString("Use 'Company' for client and 'Service Provider' for vendor.\n\n")

	b.WriteString("Structure:\n")
	for i, section := range Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}
	b.WriteString("\n")

	b.WriteString("---\n")
	fmt.Fprintf(&b, "User Description:\n%s\n\n", in.Description)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "Base Document Extract:\n%s\n\n", in.BaseText)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "Reference Examples:\n%s\n\n", strings.Join(in.Examples, ExampleSeparator))
	b.WriteString("Highlight all figures requiring validation.\n")

	return b.String()
}

// Refine builds the revision request for the current document.
func Refine(current, feedback string) string {
	return fmt.Sprintf("%s Refine this Scope of Work (SoW) based on user feedback.\n\n"+
		"Current SoW:\n%s\n\n"+
		"Feedback:\n%s\n\n"+
		"Return only the refined SoW.",
		SystemInstruction, current, strings.TrimSpace(feedback))
}
