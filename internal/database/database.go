package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"deal-stats-api/internal/models"
)

// ErrDealNotFound is returned when a deal lookup matches no row.
var ErrDealNotFound = errors.New("deal not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist. The UNIQUE
// constraint on (stat_date, customer_organisation_number) is what guarantees
// at most one stat row per customer per day, even across concurrent runs.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS deals (
			id TEXT PRIMARY KEY,
			seller_id TEXT NOT NULL,
			customer_organisation_number TEXT NOT NULL,
			price REAL NOT NULL,
			creation_date TEXT NOT NULL,
			expiry_date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_creation_date ON deals(creation_date)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_customer ON deals(customer_organisation_number)`,
		`CREATE TABLE IF NOT EXISTS daily_customer_stats (
			id TEXT PRIMARY KEY,
			stat_date TEXT NOT NULL,
			customer_organisation_number TEXT NOT NULL,
			total_deals INTEGER NOT NULL,
			total_price REAL NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(stat_date, customer_organisation_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_stat_date ON daily_customer_stats(stat_date)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// formatTime normalizes a timestamp to a UTC RFC3339 string. All stored
// timestamps share this format so lexical comparison matches chronological
// order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// InsertDeal persists a new deal.
func (db *DB) InsertDeal(ctx context.Context, deal models.Deal) error {
	query := `INSERT INTO deals (
		id, seller_id, customer_organisation_number, price, creation_date, expiry_date
	) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(
		ctx,
		query,
		deal.ID,
		deal.SellerID,
		deal.CustomerOrganisationNumber,
		deal.Price,
		formatTime(deal.CreationDate),
		formatTime(deal.ExpiryDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	return nil
}

// ListDeals returns all deals sorted by creation date descending.
func (db *DB) ListDeals(ctx context.Context) ([]models.Deal, error) {
	query := `SELECT id, seller_id, customer_organisation_number, price, creation_date, expiry_date
		FROM deals
		ORDER BY creation_date DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}

	return deals, nil
}

// GetDeal returns a single deal by id, or ErrDealNotFound.
func (db *DB) GetDeal(ctx context.Context, id string) (models.Deal, error) {
	query := `SELECT id, seller_id, customer_organisation_number, price, creation_date, expiry_date
		FROM deals
		WHERE id = ?`

	row := db.conn.QueryRowContext(ctx, query, id)

	deal, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Deal{}, ErrDealNotFound
	}
	if err != nil {
		return models.Deal{}, err
	}

	return deal, nil
}

// UpdateDealExpiry updates the expiry date of a deal and returns the updated
// record. Creation date is never touched.
func (db *DB) UpdateDealExpiry(ctx context.Context, id string, expiry time.Time) (models.Deal, error) {
	query := `UPDATE deals SET expiry_date = ? WHERE id = ?`

	result, err := db.conn.ExecContext(ctx, query, formatTime(expiry), id)
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to update deal expiry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return models.Deal{}, ErrDealNotFound
	}

	return db.GetDeal(ctx, id)
}

// DealTotalsByCustomer returns deal count and price sum per customer for deals
// created within the half-open window [start, end). Customers with no deals in
// the window produce no row.
func (db *DB) DealTotalsByCustomer(ctx context.Context, start, end time.Time) ([]models.CustomerDealTotals, error) {
	query := `SELECT customer_organisation_number, COUNT(*), SUM(price)
		FROM deals
		WHERE creation_date >= ? AND creation_date < ?
		GROUP BY customer_organisation_number
		ORDER BY customer_organisation_number`

	rows, err := db.conn.QueryContext(ctx, query, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query deal totals: %w", err)
	}
	defer rows.Close()

	var totals []models.CustomerDealTotals
	for rows.Next() {
		var row models.CustomerDealTotals
		if err := rows.Scan(&row.CustomerOrganisationNumber, &row.TotalDeals, &row.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan deal totals: %w", err)
		}
		totals = append(totals, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal totals: %w", err)
	}

	return totals, nil
}

// UpsertDailyCustomerStat writes one stat row keyed by (date, customer) as a
// single atomic statement: inserted if absent, fully replaced otherwise. Two
// runs racing on the same key converge on whichever write lands last.
func (db *DB) UpsertDailyCustomerStat(ctx context.Context, stat models.DailyCustomerStat) error {
	query := `INSERT INTO daily_customer_stats (
		id, stat_date, customer_organisation_number, total_deals, total_price, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(stat_date, customer_organisation_number) DO UPDATE SET
		total_deals = excluded.total_deals,
		total_price = excluded.total_price,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(
		ctx,
		query,
		uuid.New().String(),
		formatTime(stat.Date),
		stat.CustomerOrganisationNumber,
		stat.TotalDeals,
		stat.TotalPrice,
		formatTime(stat.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily customer stat: %w", err)
	}

	return nil
}

// ListDailyStats returns all stat rows whose date key equals the given window
// start, sorted by customer.
func (db *DB) ListDailyStats(ctx context.Context, date time.Time) ([]models.DailyCustomerStat, error) {
	query := `SELECT stat_date, customer_organisation_number, total_deals, total_price, updated_at
		FROM daily_customer_stats
		WHERE stat_date = ?
		ORDER BY customer_organisation_number`

	rows, err := db.conn.QueryContext(ctx, query, formatTime(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	return collectStats(rows)
}

// ListStatsByCustomer returns all stat rows for one customer across days,
// sorted by date ascending.
func (db *DB) ListStatsByCustomer(ctx context.Context, org string) ([]models.DailyCustomerStat, error) {
	query := `SELECT stat_date, customer_organisation_number, total_deals, total_price, updated_at
		FROM daily_customer_stats
		WHERE customer_organisation_number = ?
		ORDER BY stat_date`

	rows, err := db.conn.QueryContext(ctx, query, org)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer stats: %w", err)
	}
	defer rows.Close()

	return collectStats(rows)
}

func collectStats(rows *sql.Rows) ([]models.DailyCustomerStat, error) {
	var stats []models.DailyCustomerStat
	for rows.Next() {
		var stat models.DailyCustomerStat
		var dateStr, updatedAtStr string

		err := rows.Scan(
			&dateStr,
			&stat.CustomerOrganisationNumber,
			&stat.TotalDeals,
			&stat.TotalPrice,
			&updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}

		stat.Date, err = time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stat_date: %w", err)
		}

		stat.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (models.Deal, error) {
	var deal models.Deal
	var creationStr, expiryStr string

	err := row.Scan(
		&deal.ID,
		&deal.SellerID,
		&deal.CustomerOrganisationNumber,
		&deal.Price,
		&creationStr,
		&expiryStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Deal{}, err
		}
		return models.Deal{}, fmt.Errorf("failed to scan deal: %w", err)
	}

	deal.CreationDate, err = time.Parse(time.RFC3339, creationStr)
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to parse creation_date: %w", err)
	}

	deal.ExpiryDate, err = time.Parse(time.RFC3339, expiryStr)
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to parse expiry_date: %w", err)
	}

	return deal, nil
}
