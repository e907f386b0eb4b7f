// Package domain defines the entity records exchanged with the GeFiProj
// REST API and the role model used to gate write actions.
package domain

// Project is a tracked research project.
type Project struct {
	ID      int64  `json:"id_p,omitempty"`
	Code    int    `json:"code_p"`
	Name    string `json:"nom_p"`
	Manager int64  `json:"id_u,omitempty"`
	Status  bool   `json:"statut_p"` // true when the project is closed
}

// Funder is an organization providing fundings.
type Funder struct {
	ID   int64  `json:"id_financeur,omitempty"`
	Name string `json:"nom_financeur"`
}

// FundingStatus tracks the lifecycle of a funding decision.
type FundingStatus string

const (
	FundingPending FundingStatus = "ANTR"  // before the funding order
	FundingOrdered FundingStatus = "ATR"   // funding order received
	FundingSettled FundingStatus = "SOLDE" // balance settled
)

// Funding is a funder's financial commitment to a project.
type Funding struct {
	ID             int64         `json:"id_f,omitempty"`
	ProjectID      int64         `json:"id_p"`
	FunderID       int64         `json:"id_financeur"`
	FunderName     string        `json:"nom_financeur,omitempty"`
	Amount         float64       `json:"montant_arrete_f"`
	OrderDate      string        `json:"date_arrete_f,omitempty"`
	DeadlineDate   string        `json:"date_limite_solde_f,omitempty"`
	Status         FundingStatus `json:"statut_f"`
	SettlementDate string        `json:"date_solde_f,omitempty"`
	Comment        string        `json:"commentaire_admin_f,omitempty"`
}

// Receipt is an expected or received payment against a funding, per year.
type Receipt struct {
	ID        int64   `json:"id_r,omitempty"`
	FundingID int64   `json:"id_f"`
	Year      int     `json:"annee_r"`
	Amount    float64 `json:"montant_r"`
}

// Allocation assigns part of a receipt to a project for a given year.
type Allocation struct {
	ID        int64   `json:"id_ma,omitempty"`
	ReceiptID int64   `json:"id_r"`
	ProjectID int64   `json:"id_p"`
	Year      int     `json:"annee_ma"`
	Amount    float64 `json:"montant_ma"`
}

// Expense is a yearly outgoing amount, tracked globally.
type Expense struct {
	ID     int64   `json:"id_d,omitempty"`
	Year   int     `json:"annee_d"`
	Amount float64 `json:"montant_d"`
}

// User is an application account.
type User struct {
	ID        int64  `json:"id_u,omitempty"`
	FirstName string `json:"prenom_u"`
	LastName  string `json:"nom_u"`
	Initials  string `json:"initiales_u,omitempty"`
	Email     string `json:"email_u"`
	Active    bool   `json:"active_u"`
	Roles     []Role `json:"roles"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may perform write actions.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdministrator)
}
