// Package rules holds the commit-time validation for every screen: format
// checks first (per-field, before any network call), then business rules
// (cross-entity constraints like uniqueness and sum limits).
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/table"
)

// Year bounds accepted on receipts, allocations and expenses.
const (
	MinYear = 1970
	MaxYear = 2100
)

func requiredString(field, value string, errs []table.FieldError) []table.FieldError {
	if strings.TrimSpace(value) == "" {
		errs = append(errs, table.FieldError{Field: field, Message: "required"})
	}
	return errs
}

func validYear(field string, year int, errs []table.FieldError) []table.FieldError {
	if year < MinYear || year > MaxYear {
		errs = append(errs, table.FieldError{
			Field:   field,
			Message: fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear),
		})
	}
	return errs
}

func validDate(field, value string, errs []table.FieldError) []table.FieldError {
	if value == "" {
		return errs
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		errs = append(errs, table.FieldError{Field: field, Message: "invalid date (use YYYY-MM-DD)"})
	}
	return errs
}

// ValidateProject checks a project's fields.
func ValidateProject(p domain.Project) []table.FieldError {
	var errs []table.FieldError
	if p.Code < 10000 || p.Code > 99999 {
		errs = append(errs, table.FieldError{Field: "code_p", Message: "code must have five digits"})
	}
	errs = requiredString("nom_p", p.Name, errs)
	if p.Manager <= 0 {
		errs = append(errs, table.FieldError{Field: "id_u", Message: "a manager is required"})
	}
	return errs
}

// ProjectRules checks cross-project constraints.
func ProjectRules(p domain.Project, all []domain.Project) []string {
	var msgs []string
	for _, other := range all {
		if other.ID == p.ID && p.ID != 0 {
			continue
		}
		if other.Code == p.Code {
			msgs = append(msgs, fmt.Sprintf("a project with code %d already exists", p.Code))
		}
		if strings.EqualFold(strings.TrimSpace(other.Name), strings.TrimSpace(p.Name)) {
			msgs = append(msgs, fmt.Sprintf("a project named %q already exists", p.Name))
		}
	}
	return msgs
}

// ValidateFunder checks a funder's fields.
func ValidateFunder(f domain.Funder) []table.FieldError {
	return requiredString("nom_financeur", f.Name, nil)
}

// FunderRules enforces funder-name uniqueness.
func FunderRules(f domain.Funder, all []domain.Funder) []string {
	for _, other := range all {
		if other.ID == f.ID && f.ID != 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.Name), strings.TrimSpace(f.Name)) {
			return []string{fmt.Sprintf("a funder named %q already exists", f.Name)}
		}
	}
	return nil
}

// ValidateFunding checks a funding's fields.
func ValidateFunding(f domain.Funding) []table.FieldError {
	var errs []table.FieldError
	if f.ProjectID <= 0 {
		errs = append(errs, table.FieldError{Field: "id_p", Message: "a project is required"})
	}
	if f.FunderID <= 0 {
		errs = append(errs, table.FieldError{Field: "id_financeur", Message: "a funder is required"})
	}
	if f.Amount <= 0 {
		errs = append(errs, table.FieldError{Field: "montant_arrete_f", Message: "amount must be positive"})
	}
	switch f.Status {
	case domain.FundingPending, domain.FundingOrdered, domain.FundingSettled:
	default:
		errs = append(errs, table.FieldError{Field: "statut_f", Message: "unknown status"})
	}
	errs = validDate("date_arrete_f", f.OrderDate, errs)
	errs = validDate("date_limite_solde_f", f.DeadlineDate, errs)
	errs = validDate("date_solde_f", f.SettlementDate, errs)
	if f.Status == domain.FundingSettled && f.SettlementDate == "" {
		errs = append(errs, table.FieldError{Field: "date_solde_f", Message: "settlement date is required for a settled funding"})
	}
	return errs
}

// ValidateReceipt checks a receipt's fields.
func ValidateReceipt(r domain.Receipt) []table.FieldError {
	var errs []table.FieldError
	if r.FundingID <= 0 {
		errs = append(errs, table.FieldError{Field: "id_f", Message: "a funding is required"})
	}
	errs = validYear("annee_r", r.Year, errs)
	if r.Amount <= 0 {
		errs = append(errs, table.FieldError{Field: "montant_r", Message: "amount must be positive"})
	}
	return errs
}

// ReceiptRules enforces per-funding constraints: one receipt per year, and
// the receipts of a funding may not exceed the funding's amount.
func ReceiptRules(r domain.Receipt, all []domain.Receipt, funding *domain.Funding) []string {
	var msgs []string
	sum := r.Amount
	for _, other := range all {
		if other.ID == r.ID && r.ID != 0 {
			continue
		}
		if other.FundingID != r.FundingID {
			continue
		}
		if other.Year == r.Year {
			msgs = append(msgs, fmt.Sprintf("the funding already has a receipt for %d", r.Year))
		}
		sum += other.Amount
	}
	if funding != nil && sum > funding.Amount {
		msgs = append(msgs, fmt.Sprintf("receipts (%.2f) would exceed the funding amount (%.2f)", sum, funding.Amount))
	}
	return msgs
}

// ValidateAllocation checks an allocated amount's fields.
func ValidateAllocation(a domain.Allocation) []table.FieldError {
	var errs []table.FieldError
	if a.ReceiptID <= 0 {
		errs = append(errs, table.FieldError{Field: "id_r", Message: "a receipt is required"})
	}
	if a.ProjectID <= 0 {
		errs = append(errs, table.FieldError{Field: "id_p", Message: "a project is required"})
	}
	errs = validYear("annee_ma", a.Year, errs)
	if a.Amount <= 0 {
		errs = append(errs, table.FieldError{Field: "montant_ma", Message: "amount must be positive"})
	}
	return errs
}

// AllocationRules caps a receipt's allocations at the receipt amount.
func AllocationRules(a domain.Allocation, all []domain.Allocation, receipt *domain.Receipt) []string {
	sum := a.Amount
	for _, other := range all {
		if other.ID == a.ID && a.ID != 0 {
			continue
		}
		if other.ReceiptID == a.ReceiptID {
			sum += other.Amount
		}
	}
	if receipt != nil && sum > receipt.Amount {
		return []string{fmt.Sprintf("allocations (%.2f) would exceed the receipt amount (%.2f)", sum, receipt.Amount)}
	}
	return nil
}

// ValidateExpense checks an expense's fields.
func ValidateExpense(e domain.Expense) []table.FieldError {
	var errs []table.FieldError
	errs = validYear("annee_d", e.Year, errs)
	if e.Amount < 0 {
		errs = append(errs, table.FieldError{Field: "montant_d", Message: "amount cannot be negative"})
	}
	return errs
}

// ExpenseRules enforces one expense line per year.
func ExpenseRules(e domain.Expense, all []domain.Expense) []string {
	for _, other := range all {
		if other.ID == e.ID && e.ID != 0 {
			continue
		}
		if other.Year == e.Year {
			return []string{fmt.Sprintf("an expense for %d already exists", e.Year)}
		}
	}
	return nil
}

// ValidateUser checks a user account's fields.
func ValidateUser(u domain.User) []table.FieldError {
	var errs []table.FieldError
	errs = requiredString("prenom_u", u.FirstName, errs)
	errs = requiredString("nom_u", u.LastName, errs)
	errs = requiredString("email_u", u.Email, errs)
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		errs = append(errs, table.FieldError{Field: "email_u", Message: "invalid email address"})
	}
	if len(u.Roles) == 0 {
		errs = append(errs, table.FieldError{Field: "roles", Message: "at least one role is required"})
	}
	for _, r := range u.Roles {
		if !r.Valid() {
			errs = append(errs, table.FieldError{Field: "roles", Message: fmt.Sprintf("unknown role %q", r)})
		}
	}
	return errs
}

// UserRules enforces email uniqueness.
func UserRules(u domain.User, all []domain.User) []string {
	for _, other := range all {
		if other.ID == u.ID && u.ID != 0 {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return []string{fmt.Sprintf("a user with email %q already exists", u.Email)}
		}
	}
	return nil
}
