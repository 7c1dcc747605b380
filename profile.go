package advisory

import (
	"context"

	"github.com/etnz/advisory/date"
)

// Profile is the user's stored financial data, as returned by a ProfileStore.
//
// Pointer fields are figures that must be known to build a plan, nil means the upstream
// service does not have them.
type Profile struct {
	UserID      string       `json:"user_id"`
	Client      Client       `json:"client"`
	AsOf        date.Date    `json:"as_of"`
	Accounts    []Account    `json:"accounts"`
	Debts       []Debt       `json:"debts"`
	Goals       []Goal       `json:"goals"`
	CashFlow    CashFlow     `json:"cash_flow"`
	Plan        *PlanOutputs `json:"plan_outputs,omitempty"`
	Preferences Preferences  `json:"preferences"`
}

type Client struct {
	Name     string `json:"name"`
	RiskBand string `json:"risk_band"`
	Currency string `json:"currency"`
}

// AccountType classifies an asset account.
type AccountType string

const (
	Checking    AccountType = "checking"
	Savings     AccountType = "savings"
	MoneyMarket AccountType = "money_market"
	Cash        AccountType = "cash"
	Brokerage   AccountType = "brokerage"
	Retirement  AccountType = "retirement"
	RealEstate  AccountType = "real_estate"
)

// Liquid reports whether the account can be spent within days without penalty.
func (t AccountType) Liquid() bool {
	switch t {
	case Checking, Savings, MoneyMarket, Cash:
		return true
	}
	return false
}

type Account struct {
	Name    string      `json:"name"`
	Type    AccountType `json:"type"`
	Balance *Money      `json:"balance"`
}

// DebtType classifies a liability.
type DebtType string

const (
	CreditCard   DebtType = "credit_card"
	StudentLoan  DebtType = "student_loan"
	AutoLoan     DebtType = "auto_loan"
	Mortgage     DebtType = "mortgage"
	PersonalLoan DebtType = "personal_loan"
)

type Debt struct {
	Name    string   `json:"name"`
	Type    DebtType `json:"type"`
	Balance *Money   `json:"balance"`
	Rate    *Percent `json:"rate"`
	Payment *Money   `json:"payment"`
}

type Goal struct {
	Name     string    `json:"name"`
	Target   *Money    `json:"target"`
	Current  *Money    `json:"current"`
	Deadline date.Date `json:"deadline"`

	// MonthlyContribution overrides the straight-line contribution computed from the deadline.
	MonthlyContribution *Money `json:"monthly_contribution,omitempty"`
}

type CashFlow struct {
	MonthlyIncome   *Money `json:"monthly_income"`
	MonthlyExpenses *Money `json:"monthly_expenses"`
}

// PlanOutputs are the results of the planning engine, computed before the advisory.
type PlanOutputs struct {
	TargetAllocation   map[string]Percent `json:"target_allocation"`
	ContributionPlan   []Contribution     `json:"contribution_plan"`
	SuccessProbability *Percent           `json:"monte_carlo_success_probability"`
}

type Contribution struct {
	Goal    string `json:"goal"`
	Monthly Money  `json:"monthly"`
}

// Preferences are per user policy overrides.
type Preferences struct {
	MinCashBufferMonths *int `json:"min_cash_buffer_months,omitempty"`
}

// ProfileStore returns the stored profile of a user.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// KnowledgeBase returns the playbook references a model may cite.
type KnowledgeBase interface {
	Refs() []KBRef
}
