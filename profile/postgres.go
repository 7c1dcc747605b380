package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/advisory"
	"github.com/etnz/advisory/date"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// schema stores one row per client, and child rows in input order. A NULL figure is a figure
// the upstream service does not know.
const schema = `
CREATE TABLE IF NOT EXISTS advisory_clients (
	user_id                TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	risk_band              TEXT NOT NULL DEFAULT '',
	currency               TEXT NOT NULL DEFAULT '',
	as_of                  DATE,
	monthly_income         NUMERIC,
	monthly_expenses       NUMERIC,
	has_plan               BOOLEAN NOT NULL DEFAULT FALSE,
	success_probability    DOUBLE PRECISION,
	min_cash_buffer_months INTEGER
);
CREATE TABLE IF NOT EXISTS advisory_accounts (
	user_id  TEXT NOT NULL REFERENCES advisory_clients ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	type     TEXT NOT NULL,
	balance  NUMERIC,
	PRIMARY KEY (user_id, position)
);
CREATE TABLE IF NOT EXISTS advisory_debts (
	user_id  TEXT NOT NULL REFERENCES advisory_clients ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	type     TEXT NOT NULL,
	balance  NUMERIC,
	rate     DOUBLE PRECISION,
	payment  NUMERIC,
	PRIMARY KEY (user_id, position)
);
CREATE TABLE IF NOT EXISTS advisory_goals (
	user_id              TEXT NOT NULL REFERENCES advisory_clients ON DELETE CASCADE,
	position             INTEGER NOT NULL,
	name                 TEXT NOT NULL,
	target               NUMERIC,
	current              NUMERIC,
	deadline             DATE,
	monthly_contribution NUMERIC,
	PRIMARY KEY (user_id, position)
);
CREATE TABLE IF NOT EXISTS advisory_allocations (
	user_id     TEXT NOT NULL REFERENCES advisory_clients ON DELETE CASCADE,
	asset_class TEXT NOT NULL,
	weight      DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (user_id, asset_class)
);
CREATE TABLE IF NOT EXISTS advisory_contributions (
	user_id  TEXT NOT NULL REFERENCES advisory_clients ON DELETE CASCADE,
	position INTEGER NOT NULL,
	goal     TEXT NOT NULL,
	monthly  NUMERIC NOT NULL,
	PRIMARY KEY (user_id, position)
);
`

// PostgresStore reads profiles from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store on db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to the database at url using lib/pq.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error { return s.db.Close() }

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Profile reads the profile of userID.
func (s *PostgresStore) Profile(ctx context.Context, userID string) (*advisory.Profile, error) {
	p := &advisory.Profile{UserID: userID}
	var (
		asOf             sql.NullTime
		income, expenses decimal.NullDecimal
		hasPlan          bool
		success          sql.NullFloat64
		minBuffer        sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, risk_band, currency, as_of, monthly_income, monthly_expenses,
		       has_plan, success_probability, min_cash_buffer_months
		FROM advisory_clients
		WHERE user_id = $1`, userID).
		Scan(&p.Client.Name, &p.Client.RiskBand, &p.Client.Currency, &asOf, &income, &expenses,
			&hasPlan, &success, &minBuffer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", userID, advisory.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	cur := p.Client.Currency
	p.AsOf = toDate(asOf)
	p.CashFlow.MonthlyIncome = toMoney(income, cur)
	p.CashFlow.MonthlyExpenses = toMoney(expenses, cur)
	if minBuffer.Valid {
		n := int(minBuffer.Int64)
		p.Preferences.MinCashBufferMonths = &n
	}

	if p.Accounts, err = s.accounts(ctx, userID, cur); err != nil {
		return nil, err
	}
	if p.Debts, err = s.debts(ctx, userID, cur); err != nil {
		return nil, err
	}
	if p.Goals, err = s.goals(ctx, userID, cur); err != nil {
		return nil, err
	}
	if hasPlan {
		p.Plan = &advisory.PlanOutputs{SuccessProbability: toPercent(success)}
		if err := s.plan(ctx, userID, cur, p.Plan); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *PostgresStore) accounts(ctx context.Context, userID, cur string) ([]advisory.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, balance FROM advisory_accounts WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	var accounts []advisory.Account
	for rows.Next() {
		var a advisory.Account
		var balance decimal.NullDecimal
		if err := rows.Scan(&a.Name, &a.Type, &balance); err != nil {
			return nil, fmt.Errorf("failed to read account: %w", err)
		}
		a.Balance = toMoney(balance, cur)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) debts(ctx context.Context, userID, cur string) ([]advisory.Debt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, balance, rate, payment FROM advisory_debts WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()
	var debts []advisory.Debt
	for rows.Next() {
		var d advisory.Debt
		var balance, payment decimal.NullDecimal
		var rate sql.NullFloat64
		if err := rows.Scan(&d.Name, &d.Type, &balance, &rate, &payment); err != nil {
			return nil, fmt.Errorf("failed to read debt: %w", err)
		}
		d.Balance = toMoney(balance, cur)
		d.Rate = toPercent(rate)
		d.Payment = toMoney(payment, cur)
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (s *PostgresStore) goals(ctx context.Context, userID, cur string) ([]advisory.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, target, current, deadline, monthly_contribution
		FROM advisory_goals WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()
	var goals []advisory.Goal
	for rows.Next() {
		var g advisory.Goal
		var target, current, monthly decimal.NullDecimal
		var deadline sql.NullTime
		if err := rows.Scan(&g.Name, &target, &current, &deadline, &monthly); err != nil {
			return nil, fmt.Errorf("failed to read goal: %w", err)
		}
		g.Target = toMoney(target, cur)
		g.Current = toMoney(current, cur)
		g.Deadline = toDate(deadline)
		g.MonthlyContribution = toMoney(monthly, cur)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *PostgresStore) plan(ctx context.Context, userID, cur string, plan *advisory.PlanOutputs) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_class, weight FROM advisory_allocations WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()
	plan.TargetAllocation = make(map[string]advisory.Percent)
	for rows.Next() {
		var class string
		var weight float64
		if err := rows.Scan(&class, &weight); err != nil {
			return fmt.Errorf("failed to read allocation: %w", err)
		}
		plan.TargetAllocation[class] = advisory.Percent(weight)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT goal, monthly FROM advisory_contributions WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return fmt.Errorf("failed to list contributions: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c advisory.Contribution
		var monthly decimal.Decimal
		if err := crows.Scan(&c.Goal, &monthly); err != nil {
			return fmt.Errorf("failed to read contribution: %w", err)
		}
		c.Monthly = advisory.M(monthly, cur)
		plan.ContributionPlan = append(plan.ContributionPlan, c)
	}
	return crows.Err()
}

// Save replaces the stored profile of p.UserID.
func (s *PostgresStore) Save(ctx context.Context, p *advisory.Profile) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// children are removed by the cascade.
	if _, err = tx.ExecContext(ctx, `DELETE FROM advisory_clients WHERE user_id = $1`, p.UserID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	var success any
	if p.Plan != nil && p.Plan.SuccessProbability != nil {
		success = float64(*p.Plan.SuccessProbability)
	}
	var minBuffer any
	if p.Preferences.MinCashBufferMonths != nil {
		minBuffer = *p.Preferences.MinCashBufferMonths
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO advisory_clients (user_id, name, risk_band, currency, as_of, monthly_income,
			monthly_expenses, has_plan, success_probability, min_cash_buffer_months)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.UserID, p.Client.Name, p.Client.RiskBand, p.Client.Currency, fromDate(p.AsOf),
		fromMoney(p.CashFlow.MonthlyIncome), fromMoney(p.CashFlow.MonthlyExpenses),
		p.Plan != nil, success, minBuffer)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	for i, a := range p.Accounts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO advisory_accounts (user_id, position, name, type, balance) VALUES ($1, $2, $3, $4, $5)`,
			p.UserID, i, a.Name, string(a.Type), fromMoney(a.Balance)); err != nil {
			return fmt.Errorf("failed to insert account %q: %w", a.Name, err)
		}
	}
	for i, d := range p.Debts {
		var rate any
		if d.Rate != nil {
			rate = float64(*d.Rate)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO advisory_debts (user_id, position, name, type, balance, rate, payment)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.UserID, i, d.Name, string(d.Type), fromMoney(d.Balance), rate, fromMoney(d.Payment)); err != nil {
			return fmt.Errorf("failed to insert debt %q: %w", d.Name, err)
		}
	}
	for i, g := range p.Goals {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO advisory_goals (user_id, position, name, target, current, deadline, monthly_contribution)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.UserID, i, g.Name, fromMoney(g.Target), fromMoney(g.Current), fromDate(g.Deadline),
			fromMoney(g.MonthlyContribution)); err != nil {
			return fmt.Errorf("failed to insert goal %q: %w", g.Name, err)
		}
	}
	if p.Plan != nil {
		if err = savePlan(ctx, tx, p.UserID, p.Plan); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}
	return nil
}

// savePlan inserts the plan outputs with one statement per table.
func savePlan(ctx context.Context, tx *sql.Tx, userID string, plan *advisory.PlanOutputs) error {
	classes := make([]string, 0, len(plan.TargetAllocation))
	weights := make([]float64, 0, len(plan.TargetAllocation))
	for class, w := range plan.TargetAllocation {
		classes = append(classes, class)
		weights = append(weights, float64(w))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO advisory_allocations (user_id, asset_class, weight)
		SELECT $1, unnest($2::text[]), unnest($3::float8[])`,
		userID, pq.Array(classes), pq.Array(weights)); err != nil {
		return fmt.Errorf("failed to insert allocations: %w", err)
	}

	positions := make([]int64, 0, len(plan.ContributionPlan))
	goals := make([]string, 0, len(plan.ContributionPlan))
	monthly := make([]string, 0, len(plan.ContributionPlan))
	for i, c := range plan.ContributionPlan {
		positions = append(positions, int64(i))
		goals = append(goals, c.Goal)
		monthly = append(monthly, c.Monthly.Decimal().String())
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO advisory_contributions (user_id, position, goal, monthly)
		SELECT $1, unnest($2::int[]), unnest($3::text[]), unnest($4::numeric[])`,
		userID, pq.Array(positions), pq.Array(goals), pq.Array(monthly)); err != nil {
		return fmt.Errorf("failed to insert contributions: %w", err)
	}
	return nil
}

func toMoney(d decimal.NullDecimal, cur string) *advisory.Money {
	if !d.Valid {
		return nil
	}
	m := advisory.M(d.Decimal, cur)
	return &m
}

func fromMoney(m *advisory.Money) any {
	if m == nil {
		return nil
	}
	return m.Decimal()
}

func toPercent(f sql.NullFloat64) *advisory.Percent {
	if !f.Valid {
		return nil
	}
	p := advisory.Percent(f.Float64)
	return &p
}

func toDate(t sql.NullTime) date.Date {
	if !t.Valid {
		return date.Date{}
	}
	return date.New(t.Time.Date())
}

func fromDate(d date.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
