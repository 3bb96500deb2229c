package harvest

import "github.com/GoCodeAlone/workflow-plugin-soap/piece"

// resource is one listable Harvest endpoint and the query filters it takes.
type resource struct {
	action      string
	displayName string
	path        string
	filters     []*piece.Property
}

func textFilter(name, display, desc string) *piece.Property {
	return &piece.Property{Name: name, DisplayName: display, Description: desc, Type: piece.ShortText}
}

func boolFilter(name, display, desc string) *piece.Property {
	return &piece.Property{Name: name, DisplayName: display, Description: desc, Type: piece.Checkbox}
}

func numberFilter(name, display, desc string) *piece.Property {
	return &piece.Property{Name: name, DisplayName: display, Description: desc, Type: piece.Number}
}

var (
	isActive     = boolFilter("is_active", "Active", "Only return active records")
	isBilled     = boolFilter("is_billed", "Billed", "Only return billed records")
	clientID     = numberFilter("client_id", "Client ID", "Only return records belonging to this client")
	projectID    = numberFilter("project_id", "Project ID", "Only return records belonging to this project")
	userID       = numberFilter("user_id", "User ID", "Only return records belonging to this user")
	from         = textFilter("from", "From", "Only return records on or after this date (YYYY-MM-DD)")
	to           = textFilter("to", "To", "Only return records on or before this date (YYYY-MM-DD)")
	state        = textFilter("state", "State", "Only return records with this state")
	updatedSince = textFilter("updated_since", "Updated Since", "Only return records updated since this ISO 8601 date and time")
)

var resources = []resource{
	{"get_clients", "Get Clients", "clients", []*piece.Property{isActive, updatedSince}},
	{"get_estimates", "Get Estimates", "estimates", []*piece.Property{clientID, updatedSince, from, to, state}},
	{"get_expenses", "Get Expenses", "expenses", []*piece.Property{userID, clientID, projectID, isBilled, updatedSince, from, to}},
	{"get_invoices", "Get Invoices", "invoices", []*piece.Property{clientID, projectID, updatedSince, from, to, state}},
	{"get_projects", "Get Projects", "projects", []*piece.Property{isActive, clientID, updatedSince}},
	{"get_roles", "Get Roles", "roles", nil},
	{"get_tasks", "Get Tasks", "tasks", []*piece.Property{isActive, updatedSince}},
	{"get_time_entries", "Get Time Entries", "time_entries", []*piece.Property{
		userID, clientID, projectID, isBilled,
		boolFilter("is_running", "Running", "Only return running time entries"),
		updatedSince, from, to,
	}},
}

// pagingProps are accepted by every list endpoint.
func pagingProps() []*piece.Property {
	return []*piece.Property{
		numberFilter("page", "Page", "The page number to use in pagination"),
		numberFilter("per_page", "Per Page", "The number of records to return per page (1-2000)"),
		textFilter("filter", "Filter", "Optional jq expression applied to the response"),
	}
}
