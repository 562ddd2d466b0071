package assistant

import "github.com/google/generative-ai-go/genai"

// Function names the dispatcher understands.
const (
	FnCreateAppointment   = "create_appointment"
	FnGetAppointments     = "get_appointments"
	FnCheckAvailability   = "check_availability"
	FnGetProviderSchedule = "get_provider_schedule"
	FnCancelAppointment   = "cancel_appointment"
	FnCreateClient        = "create_client"
	FnCreateProvider      = "create_provider"
	FnSearchClients       = "search_clients"
)

type param struct {
	name        string
	description string
	required    bool
}

type tool struct {
	name        string
	description string
	params      []param
}

var schedulingTools = []tool{
	{
		name:        FnCreateAppointment,
		description: "Book an appointment for a client with a provider. Use IDs from the CRM context.",
		params: []param{
			{"provider_id", "Provider ID (UUID) from the PROVIDERS list", true},
			{"client_id", "Client ID (UUID) from the CLIENTS list", true},
			{"date", "Appointment date, YYYY-MM-DD", true},
			{"start_time", "Start time, HH:MM 24-hour", true},
			{"end_time", "End time, HH:MM 24-hour. Defaults to 30 minutes after start", false},
			{"service_id", "Optional service ID (UUID); sets duration and price", false},
			{"notes", "Optional notes", false},
		},
	},
	{
		name:        FnGetAppointments,
		description: "List appointments, optionally filtered by provider, client or date.",
		params: []param{
			{"provider_id", "Filter by provider ID", false},
			{"client_id", "Filter by client ID", false},
			{"date", "Filter by date, YYYY-MM-DD", false},
		},
	},
	{
		name:        FnCheckAvailability,
		description: "Summarise free hours for a provider over the 7 days starting at date, or for every provider on date.",
		params: []param{
			{"provider_id", "Provider ID; omit to check all providers", false},
			{"date", "First date to check, YYYY-MM-DD", true},
		},
	},
	{
		name:        FnGetProviderSchedule,
		description: "Show a provider's appointments and blocked times for one date.",
		params: []param{
			{"provider_id", "Provider ID", true},
			{"date", "Date, YYYY-MM-DD", true},
		},
	},
	{
		name:        FnCancelAppointment,
		description: "Cancel an appointment by its ID.",
		params: []param{
			{"appointment_id", "Appointment ID to cancel", true},
		},
	},
	{
		name:        FnCreateClient,
		description: "Register a new client.",
		params: []param{
			{"name", "Client's full name", true},
			{"phone", "Phone number", false},
			{"email", "Email address", false},
		},
	},
	{
		name:        FnCreateProvider,
		description: "Register a new provider (doctor or staff member).",
		params: []param{
			{"name", "Provider name, optionally prefixed with Dr., Prof., Mr., Ms. or Mrs.", true},
			{"title", "Title such as Doctor or Hygienist", false},
			{"specialty", "Specialty", false},
			{"email", "Email address", false},
			{"phone", "Phone number", false},
			{"working_hours", "Working hours as HH:MM-HH:MM, default 09:00-17:00", false},
		},
	},
	{
		name:        FnSearchClients,
		description: "Search existing clients by name, phone or email.",
		params: []param{
			{"query", "Text to search for", true},
		},
	},
}

// FunctionDeclarations renders the scheduling tools for Gemini.
func FunctionDeclarations() []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(schedulingTools))
	for _, t := range schedulingTools {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(t.params))}
		for _, p := range t.params {
			schema.Properties[p.name] = &genai.Schema{Type: genai.TypeString, Description: p.description}
			if p.required {
				schema.Required = append(schema.Required, p.name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{Name: t.name, Description: t.description, Parameters: schema})
	}
	return out
}
