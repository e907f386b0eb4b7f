package web

// pages.go declares the entity screens. Each screen is a pageDef: columns,
// form decoding, cell formatting, select-box option loading and the
// validation invoked on commit. The table controller and the handlers are
// generic; everything entity-specific lives here.

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/rules"
	"github.com/gefiproj/gefiproj/internal/table"
)

// pageKeys in navigation order.
var pageKeys = []string{"projects", "funders", "fundings", "receipts", "allocations", "expenses", "users"}

// buildPages constructs one session's page set over its API client.
func buildPages(client *api.Client, logger *slog.Logger) (map[string]Page, error) {
	factories := map[string]func(*api.Client, *slog.Logger) (Page, error){
		"projects":    newProjectsPage,
		"funders":     newFundersPage,
		"fundings":    newFundingsPage,
		"receipts":    newReceiptsPage,
		"allocations": newAllocationsPage,
		"expenses":    newExpensesPage,
		"users":       newUsersPage,
	}
	pages := make(map[string]Page, len(factories))
	for key, build := range factories {
		p, err := build(client, logger)
		if err != nil {
			return nil, fmt.Errorf("build page %s: %w", key, err)
		}
		pages[key] = p
	}
	return pages, nil
}

// form helpers: parsing is lossy on purpose. A malformed number decodes to
// zero and the format validation reports it on the right field, instead of
// the whole request failing.

func formString(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

func formInt(form url.Values, key string) int {
	n, _ := strconv.Atoi(formString(form, key))
	return n
}

func formInt64(form url.Values, key string) int64 {
	n, _ := strconv.ParseInt(formString(form, key), 10, 64)
	return n
}

func formFloat(form url.Values, key string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(formString(form, key), ",", "."), 64)
	return f
}

func formBool(form url.Values, key string) bool {
	switch strings.ToLower(formString(form, key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// compareFold orders strings case-insensitively.
func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func itoa64(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// optionList converts id/label pairs into select options.
func optionList[T any](items []T, id func(T) string, label func(T) string) []table.SelectOption {
	opts := make([]table.SelectOption, len(items))
	for i, item := range items {
		opts[i] = table.SelectOption{ID: id(item), Label: label(item)}
	}
	return opts
}

func newProjectsPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Project]{
		key:      "projects",
		title:    "Projects",
		resource: client.Projects(),
		id:       func(p domain.Project) int64 { return p.ID },
		columns: []table.Column{
			{Code: "code_p", Name: "Code", Kind: table.CellNumber, Sortable: true, Mandatory: true},
			{Code: "nom_p", Name: "Name", Kind: table.CellText, Sortable: true, Mandatory: true},
			{Code: "id_u", Name: "Manager", Kind: table.CellSelect, Mandatory: true},
			{Code: "statut_p", Name: "Closed", Kind: table.CellBool},
		},
		sortColumn: "code_p",
		compare: func(a, b domain.Project, col string) int {
			if col == "nom_p" {
				return compareFold(a.Name, b.Name)
			}
			return cmp.Compare(a.Code, b.Code)
		},
		placeholders: map[string]string{
			"code_p": "5-digit code",
			"nom_p":  "Project name",
		},
		options: func(ctx context.Context) (map[string][]table.SelectOption, error) {
			users, err := client.Users().List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string][]table.SelectOption{
				"id_u": optionList(users,
					func(u domain.User) string { return itoa64(u.ID) },
					func(u domain.User) string { return u.FirstName + " " + u.LastName }),
			}, nil
		},
		decode: func(form url.Values, base domain.Project) domain.Project {
			base.Code = formInt(form, "code_p")
			base.Name = formString(form, "nom_p")
			base.Manager = formInt64(form, "id_u")
			base.Status = formBool(form, "statut_p")
			return base
		},
		format: func(col string, p domain.Project) string {
			switch col {
			case "code_p":
				if p.Code == 0 {
					return ""
				}
				return strconv.Itoa(p.Code)
			case "nom_p":
				return p.Name
			case "statut_p":
				if p.Status {
					return "true"
				}
				return "false"
			}
			return ""
		},
		selected: func(col string, p domain.Project) string {
			if col == "id_u" {
				return itoa64(p.Manager)
			}
			return ""
		},
		validate: rules.ValidateProject,
		rules: func(ctx context.Context, p domain.Project, all []domain.Project) ([]string, error) {
			return rules.ProjectRules(p, all), nil
		},
	}
	return newPage(def, logger)
}

func newFundersPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Funder]{
		key:      "funders",
		title:    "Funders",
		resource: client.Funders(),
		id:       func(f domain.Funder) int64 { return f.ID },
		columns: []table.Column{
			{Code: "nom_financeur", Name: "Name", Kind: table.CellText, Sortable: true, Mandatory: true},
		},
		sortColumn: "nom_financeur",
		compare: func(a, b domain.Funder, col string) int {
			return compareFold(a.Name, b.Name)
		},
		placeholders: map[string]string{"nom_financeur": "Funder name"},
		decode: func(form url.Values, base domain.Funder) domain.Funder {
			base.Name = formString(form, "nom_financeur")
			return base
		},
		format: func(col string, f domain.Funder) string {
			if col == "nom_financeur" {
				return f.Name
			}
			return ""
		},
		validate: rules.ValidateFunder,
		rules: func(ctx context.Context, f domain.Funder, all []domain.Funder) ([]string, error) {
			return rules.FunderRules(f, all), nil
		},
	}
	return newPage(def, logger)
}

var fundingStatusOptions = []table.SelectOption{
	{ID: string(domain.FundingPending), Label: "Before order"},
	{ID: string(domain.FundingOrdered), Label: "Order received"},
	{ID: string(domain.FundingSettled), Label: "Settled"},
}

func newFundingsPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Funding]{
		key:      "fundings",
		title:    "Fundings",
		resource: client.Fundings(),
		id:       func(f domain.Funding) int64 { return f.ID },
		defaultEntity: domain.Funding{
			Status: domain.FundingPending,
		},
		columns: []table.Column{
			{Code: "id_p", Name: "Project", Kind: table.CellSelect, Mandatory: true},
			{Code: "id_financeur", Name: "Funder", Kind: table.CellSelect, Mandatory: true},
			{Code: "montant_arrete_f", Name: "Amount", Kind: table.CellCurrency, Sortable: true, Mandatory: true},
			{Code: "date_arrete_f", Name: "Order date", Kind: table.CellDate, Sortable: true},
			{Code: "date_limite_solde_f", Name: "Deadline", Kind: table.CellDate},
			{Code: "statut_f", Name: "Status", Kind: table.CellSelect, Mandatory: true},
			{Code: "date_solde_f", Name: "Settled on", Kind: table.CellDate},
			{Code: "commentaire_admin_f", Name: "Comment", Kind: table.CellTextarea},
		},
		sortColumn: "date_arrete_f",
		compare: func(a, b domain.Funding, col string) int {
			if col == "montant_arrete_f" {
				return cmp.Compare(a.Amount, b.Amount)
			}
			// ISO dates order lexically.
			return strings.Compare(a.OrderDate, b.OrderDate)
		},
		placeholders: map[string]string{
			"montant_arrete_f": "0.00",
			"date_arrete_f":    "YYYY-MM-DD",
		},
		options: func(ctx context.Context) (map[string][]table.SelectOption, error) {
			projects, err := client.Projects().List(ctx)
			if err != nil {
				return nil, err
			}
			funders, err := client.Funders().List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string][]table.SelectOption{
				"id_p": optionList(projects,
					func(p domain.Project) string { return itoa64(p.ID) },
					func(p domain.Project) string { return fmt.Sprintf("%d %s", p.Code, p.Name) }),
				"id_financeur": optionList(funders,
					func(f domain.Funder) string { return itoa64(f.ID) },
					func(f domain.Funder) string { return f.Name }),
				"statut_f": fundingStatusOptions,
			}, nil
		},
		decode: func(form url.Values, base domain.Funding) domain.Funding {
			base.ProjectID = formInt64(form, "id_p")
			base.FunderID = formInt64(form, "id_financeur")
			base.Amount = formFloat(form, "montant_arrete_f")
			base.OrderDate = formString(form, "date_arrete_f")
			base.DeadlineDate = formString(form, "date_limite_solde_f")
			base.Status = domain.FundingStatus(formString(form, "statut_f"))
			base.SettlementDate = formString(form, "date_solde_f")
			base.Comment = formString(form, "commentaire_admin_f")
			return base
		},
		format: func(col string, f domain.Funding) string {
			switch col {
			case "montant_arrete_f":
				return formatAmount(f.Amount)
			case "date_arrete_f":
				return f.OrderDate
			case "date_limite_solde_f":
				return f.DeadlineDate
			case "date_solde_f":
				return f.SettlementDate
			case "commentaire_admin_f":
				return f.Comment
			}
			return ""
		},
		selected: func(col string, f domain.Funding) string {
			switch col {
			case "id_p":
				return itoa64(f.ProjectID)
			case "id_financeur":
				return itoa64(f.FunderID)
			case "statut_f":
				return string(f.Status)
			}
			return ""
		},
		validate: rules.ValidateFunding,
	}
	return newPage(def, logger)
}

func newReceiptsPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Receipt]{
		key:      "receipts",
		title:    "Receipts",
		resource: client.Receipts(),
		id:       func(r domain.Receipt) int64 { return r.ID },
		columns: []table.Column{
			{Code: "id_f", Name: "Funding", Kind: table.CellSelect, Mandatory: true},
			{Code: "annee_r", Name: "Year", Kind: table.CellNumber, Sortable: true, Mandatory: true},
			{Code: "montant_r", Name: "Amount", Kind: table.CellCurrency, Mandatory: true},
		},
		sortColumn: "annee_r",
		compare: func(a, b domain.Receipt, col string) int {
			return cmp.Compare(a.Year, b.Year)
		},
		placeholders: map[string]string{"annee_r": "YYYY", "montant_r": "0.00"},
		options: func(ctx context.Context) (map[string][]table.SelectOption, error) {
			fundings, err := client.Fundings().List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string][]table.SelectOption{
				"id_f": optionList(fundings,
					func(f domain.Funding) string { return itoa64(f.ID) },
					func(f domain.Funding) string {
						return fmt.Sprintf("#%d %s (%s)", f.ID, f.FunderName, formatAmount(f.Amount))
					}),
			}, nil
		},
		decode: func(form url.Values, base domain.Receipt) domain.Receipt {
			base.FundingID = formInt64(form, "id_f")
			base.Year = formInt(form, "annee_r")
			base.Amount = formFloat(form, "montant_r")
			return base
		},
		format: func(col string, r domain.Receipt) string {
			switch col {
			case "annee_r":
				if r.Year == 0 {
					return ""
				}
				return strconv.Itoa(r.Year)
			case "montant_r":
				return formatAmount(r.Amount)
			}
			return ""
		},
		selected: func(col string, r domain.Receipt) string {
			if col == "id_f" {
				return itoa64(r.FundingID)
			}
			return ""
		},
		validate: rules.ValidateReceipt,
		rules: func(ctx context.Context, r domain.Receipt, all []domain.Receipt) ([]string, error) {
			funding, err := client.Fundings().Get(ctx, r.FundingID)
			if err != nil {
				return nil, fmt.Errorf("load funding %d: %w", r.FundingID, err)
			}
			return rules.ReceiptRules(r, all, funding), nil
		},
	}
	return newPage(def, logger)
}

func newAllocationsPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Allocation]{
		key:      "allocations",
		title:    "Allocated amounts",
		resource: client.Allocations(),
		id:       func(a domain.Allocation) int64 { return a.ID },
		columns: []table.Column{
			{Code: "id_r", Name: "Receipt", Kind: table.CellSelect, Mandatory: true},
			{Code: "id_p", Name: "Project", Kind: table.CellSelect, Mandatory: true},
			{Code: "annee_ma", Name: "Year", Kind: table.CellNumber, Sortable: true, Mandatory: true},
			{Code: "montant_ma", Name: "Amount", Kind: table.CellCurrency, Mandatory: true},
		},
		sortColumn: "annee_ma",
		compare: func(a, b domain.Allocation, col string) int {
			return cmp.Compare(a.Year, b.Year)
		},
		placeholders: map[string]string{"annee_ma": "YYYY", "montant_ma": "0.00"},
		options: func(ctx context.Context) (map[string][]table.SelectOption, error) {
			receipts, err := client.Receipts().List(ctx)
			if err != nil {
				return nil, err
			}
			projects, err := client.Projects().List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string][]table.SelectOption{
				"id_r": optionList(receipts,
					func(r domain.Receipt) string { return itoa64(r.ID) },
					func(r domain.Receipt) string {
						return fmt.Sprintf("#%d %d (%s)", r.ID, r.Year, formatAmount(r.Amount))
					}),
				"id_p": optionList(projects,
					func(p domain.Project) string { return itoa64(p.ID) },
					func(p domain.Project) string { return fmt.Sprintf("%d %s", p.Code, p.Name) }),
			}, nil
		},
		decode: func(form url.Values, base domain.Allocation) domain.Allocation {
			base.ReceiptID = formInt64(form, "id_r")
			base.ProjectID = formInt64(form, "id_p")
			base.Year = formInt(form, "annee_ma")
			base.Amount = formFloat(form, "montant_ma")
			return base
		},
		format: func(col string, a domain.Allocation) string {
			switch col {
			case "annee_ma":
				if a.Year == 0 {
					return ""
				}
				return strconv.Itoa(a.Year)
			case "montant_ma":
				return formatAmount(a.Amount)
			}
			return ""
		},
		selected: func(col string, a domain.Allocation) string {
			switch col {
			case "id_r":
				return itoa64(a.ReceiptID)
			case "id_p":
				return itoa64(a.ProjectID)
			}
			return ""
		},
		validate: rules.ValidateAllocation,
		rules: func(ctx context.Context, a domain.Allocation, all []domain.Allocation) ([]string, error) {
			receipt, err := client.Receipts().Get(ctx, a.ReceiptID)
			if err != nil {
				return nil, fmt.Errorf("load receipt %d: %w", a.ReceiptID, err)
			}
			return rules.AllocationRules(a, all, receipt), nil
		},
	}
	return newPage(def, logger)
}

func newExpensesPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.Expense]{
		key:      "expenses",
		title:    "Expenses",
		resource: client.Expenses(),
		id:       func(e domain.Expense) int64 { return e.ID },
		columns: []table.Column{
			{Code: "annee_d", Name: "Year", Kind: table.CellNumber, Sortable: true, Mandatory: true},
			{Code: "montant_d", Name: "Amount", Kind: table.CellCurrency, Mandatory: true},
		},
		// Most recent budget year first.
		sortColumn:    "annee_d",
		sortDirection: table.SortDesc,
		compare: func(a, b domain.Expense, col string) int {
			return cmp.Compare(a.Year, b.Year)
		},
		placeholders: map[string]string{"annee_d": "YYYY", "montant_d": "0.00"},
		decode: func(form url.Values, base domain.Expense) domain.Expense {
			base.Year = formInt(form, "annee_d")
			base.Amount = formFloat(form, "montant_d")
			return base
		},
		format: func(col string, e domain.Expense) string {
			switch col {
			case "annee_d":
				if e.Year == 0 {
					return ""
				}
				return strconv.Itoa(e.Year)
			case "montant_d":
				return formatAmount(e.Amount)
			}
			return ""
		},
		validate: rules.ValidateExpense,
		rules: func(ctx context.Context, e domain.Expense, all []domain.Expense) ([]string, error) {
			return rules.ExpenseRules(e, all), nil
		},
	}
	return newPage(def, logger)
}

var roleOptions = []table.SelectOption{
	{ID: string(domain.RoleAdministrator), Label: "Administrator"},
	{ID: string(domain.RoleConsultant), Label: "Consultant"},
}

func newUsersPage(client *api.Client, logger *slog.Logger) (Page, error) {
	def := pageDef[domain.User]{
		key:      "users",
		title:    "Users",
		resource: client.Users(),
		id:       func(u domain.User) int64 { return u.ID },
		defaultEntity: domain.User{
			Active: true,
			Roles:  []domain.Role{domain.RoleConsultant},
		},
		columns: []table.Column{
			{Code: "prenom_u", Name: "First name", Kind: table.CellText, Mandatory: true},
			{Code: "nom_u", Name: "Last name", Kind: table.CellText, Sortable: true, Mandatory: true},
			{Code: "initiales_u", Name: "Initials", Kind: table.CellText},
			{Code: "email_u", Name: "Email", Kind: table.CellText, Mandatory: true},
			{Code: "active_u", Name: "Active", Kind: table.CellBool},
			{Code: "roles", Name: "Roles", Kind: table.CellSelect, Mandatory: true},
		},
		sortColumn: "nom_u",
		compare: func(a, b domain.User, col string) int {
			return compareFold(a.LastName, b.LastName)
		},
		options: func(ctx context.Context) (map[string][]table.SelectOption, error) {
			return map[string][]table.SelectOption{"roles": roleOptions}, nil
		},
		decode: func(form url.Values, base domain.User) domain.User {
			base.FirstName = formString(form, "prenom_u")
			base.LastName = formString(form, "nom_u")
			base.Initials = formString(form, "initiales_u")
			base.Email = formString(form, "email_u")
			base.Active = formBool(form, "active_u")
			var roles []domain.Role
			for _, r := range form["roles"] {
				roles = append(roles, domain.Role(strings.TrimSpace(r)))
			}
			base.Roles = roles
			return base
		},
		format: func(col string, u domain.User) string {
			switch col {
			case "prenom_u":
				return u.FirstName
			case "nom_u":
				return u.LastName
			case "initiales_u":
				return u.Initials
			case "email_u":
				return u.Email
			case "active_u":
				if u.Active {
					return "true"
				}
				return "false"
			}
			return ""
		},
		selected: func(col string, u domain.User) string {
			if col != "roles" {
				return ""
			}
			parts := make([]string, len(u.Roles))
			for i, r := range u.Roles {
				parts[i] = string(r)
			}
			return strings.Join(parts, ",")
		},
		validate: rules.ValidateUser,
		rules: func(ctx context.Context, u domain.User, all []domain.User) ([]string, error) {
			return rules.UserRules(u, all), nil
		},
	}
	return newPage(def, logger)
}
