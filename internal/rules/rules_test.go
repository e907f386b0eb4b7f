package rules

import (
	"testing"

	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/table"
)

func fieldsOf(errs []table.FieldError) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, e := range errs {
		out[e.Field] = true
	}
	return out
}

func TestValidateProject(t *testing.T) {
	tests := []struct {
		name       string
		project    domain.Project
		wantFields []string
	}{
		{
			name:    "valid",
			project: domain.Project{Code: 12345, Name: "Apollo", Manager: 1},
		},
		{
			name:       "code too short",
			project:    domain.Project{Code: 999, Name: "Apollo", Manager: 1},
			wantFields: []string{"code_p"},
		},
		{
			name:       "code too long",
			project:    domain.Project{Code: 100000, Name: "Apollo", Manager: 1},
			wantFields: []string{"code_p"},
		},
		{
			name:       "blank name and no manager",
			project:    domain.Project{Code: 12345, Name: "   "},
			wantFields: []string{"nom_p", "id_u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateProject(tt.project)
			got := fieldsOf(errs)
			if len(errs) != len(tt.wantFields) {
				t.Errorf("got %d errors (%v), want %d", len(errs), errs, len(tt.wantFields))
			}
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("no error on field %q", f)
				}
			}
		})
	}
}

func TestProjectRules_Uniqueness(t *testing.T) {
	all := []domain.Project{
		{ID: 1, Code: 11111, Name: "Apollo"},
		{ID: 2, Code: 22222, Name: "Gemini"},
	}

	if msgs := ProjectRules(domain.Project{ID: 3, Code: 11111, Name: "Artemis"}, all); len(msgs) != 1 {
		t.Errorf("duplicate code: %v", msgs)
	}
	if msgs := ProjectRules(domain.Project{ID: 3, Code: 33333, Name: "apollo"}, all); len(msgs) != 1 {
		t.Errorf("duplicate name should be case-insensitive: %v", msgs)
	}
	// A project does not conflict with itself on edit.
	if msgs := ProjectRules(domain.Project{ID: 1, Code: 11111, Name: "Apollo"}, all); len(msgs) != 0 {
		t.Errorf("self conflict: %v", msgs)
	}
	// A draft (id zero) conflicts with existing rows.
	if msgs := ProjectRules(domain.Project{Code: 22222, Name: "New"}, all); len(msgs) != 1 {
		t.Errorf("draft conflict: %v", msgs)
	}
}

func TestValidateFunding(t *testing.T) {
	valid := domain.Funding{
		ProjectID: 1,
		FunderID:  2,
		Amount:    1000,
		Status:    domain.FundingOrdered,
		OrderDate: "2024-03-01",
	}
	if errs := ValidateFunding(valid); len(errs) != 0 {
		t.Errorf("valid funding rejected: %v", errs)
	}

	bad := domain.Funding{Amount: -5, Status: "???", OrderDate: "03/01/2024"}
	got := fieldsOf(ValidateFunding(bad))
	for _, f := range []string{"id_p", "id_financeur", "montant_arrete_f", "statut_f", "date_arrete_f"} {
		if !got[f] {
			t.Errorf("no error on field %q", f)
		}
	}

	settled := valid
	settled.Status = domain.FundingSettled
	if got := fieldsOf(ValidateFunding(settled)); !got["date_solde_f"] {
		t.Error("settled funding without settlement date accepted")
	}
	settled.SettlementDate = "2024-06-30"
	if errs := ValidateFunding(settled); len(errs) != 0 {
		t.Errorf("settled funding with date rejected: %v", errs)
	}
}

func TestReceiptRules(t *testing.T) {
	funding := &domain.Funding{ID: 9, Amount: 1000}
	all := []domain.Receipt{
		{ID: 1, FundingID: 9, Year: 2023, Amount: 400},
		{ID: 2, FundingID: 9, Year: 2024, Amount: 300},
		{ID: 3, FundingID: 8, Year: 2024, Amount: 9999},
	}

	// Fits within the remaining amount, distinct year.
	if msgs := ReceiptRules(domain.Receipt{FundingID: 9, Year: 2025, Amount: 300}, all, funding); len(msgs) != 0 {
		t.Errorf("valid receipt rejected: %v", msgs)
	}
	// Exceeds the funding.
	if msgs := ReceiptRules(domain.Receipt{FundingID: 9, Year: 2025, Amount: 301}, all, funding); len(msgs) != 1 {
		t.Errorf("overflow not caught: %v", msgs)
	}
	// Duplicate year on the same funding.
	if msgs := ReceiptRules(domain.Receipt{FundingID: 9, Year: 2024, Amount: 100}, all, funding); len(msgs) != 1 {
		t.Errorf("duplicate year not caught: %v", msgs)
	}
	// Editing a receipt replaces its own old amount in the sum.
	if msgs := ReceiptRules(domain.Receipt{ID: 2, FundingID: 9, Year: 2024, Amount: 600}, all, funding); len(msgs) != 0 {
		t.Errorf("edit counted against itself: %v", msgs)
	}
}

func TestAllocationRules(t *testing.T) {
	receipt := &domain.Receipt{ID: 5, Amount: 500}
	all := []domain.Allocation{
		{ID: 1, ReceiptID: 5, Amount: 200},
		{ID: 2, ReceiptID: 6, Amount: 999},
	}

	if msgs := AllocationRules(domain.Allocation{ReceiptID: 5, Amount: 300}, all, receipt); len(msgs) != 0 {
		t.Errorf("valid allocation rejected: %v", msgs)
	}
	if msgs := AllocationRules(domain.Allocation{ReceiptID: 5, Amount: 301}, all, receipt); len(msgs) != 1 {
		t.Errorf("overflow not caught: %v", msgs)
	}
}

func TestExpenseRules_OnePerYear(t *testing.T) {
	all := []domain.Expense{{ID: 1, Year: 2024, Amount: 10}}

	if msgs := ExpenseRules(domain.Expense{Year: 2025, Amount: 5}, all); len(msgs) != 0 {
		t.Errorf("new year rejected: %v", msgs)
	}
	if msgs := ExpenseRules(domain.Expense{Year: 2024, Amount: 5}, all); len(msgs) != 1 {
		t.Errorf("duplicate year not caught: %v", msgs)
	}
	if msgs := ExpenseRules(domain.Expense{ID: 1, Year: 2024, Amount: 7}, all); len(msgs) != 0 {
		t.Errorf("edit conflicts with itself: %v", msgs)
	}
}

func TestValidateYearBounds(t *testing.T) {
	if errs := ValidateExpense(domain.Expense{Year: 1969}); len(errs) == 0 {
		t.Error("year below range accepted")
	}
	if errs := ValidateExpense(domain.Expense{Year: 2101}); len(errs) == 0 {
		t.Error("year above range accepted")
	}
	if errs := ValidateExpense(domain.Expense{Year: 1970}); len(errs) != 0 {
		t.Errorf("lower bound rejected: %v", errs)
	}
	if errs := ValidateExpense(domain.Expense{Year: 2100}); len(errs) != 0 {
		t.Errorf("upper bound rejected: %v", errs)
	}
}

func TestValidateUser(t *testing.T) {
	valid := domain.User{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.org",
		Roles:     []domain.Role{domain.RoleConsultant},
	}
	if errs := ValidateUser(valid); len(errs) != 0 {
		t.Errorf("valid user rejected: %v", errs)
	}

	bad := domain.User{Email: "not-an-email", Roles: []domain.Role{"root"}}
	got := fieldsOf(ValidateUser(bad))
	for _, f := range []string{"prenom_u", "nom_u", "email_u", "roles"} {
		if !got[f] {
			t.Errorf("no error on field %q", f)
		}
	}

	noRoles := valid
	noRoles.Roles = nil
	if got := fieldsOf(ValidateUser(noRoles)); !got["roles"] {
		t.Error("user without roles accepted")
	}
}

func TestUserRules_EmailUniqueness(t *testing.T) {
	all := []domain.User{{ID: 1, Email: "ada@example.org"}}

	if msgs := UserRules(domain.User{Email: "ADA@example.org"}, all); len(msgs) != 1 {
		t.Errorf("duplicate email should be case-insensitive: %v", msgs)
	}
	if msgs := UserRules(domain.User{ID: 1, Email: "ada@example.org"}, all); len(msgs) != 0 {
		t.Errorf("self conflict: %v", msgs)
	}
}
