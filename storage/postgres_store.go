package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"property-scraper/models"
	"property-scraper/utils"
)

const uniqueViolation = "23505"

// PostgresStore persists listings and their price history to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to answer,
// runs schema migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id            UUID          PRIMARY KEY,
			external_id   TEXT          NOT NULL,
			source        VARCHAR(32)   NOT NULL,
			url           TEXT          NOT NULL,
			title         TEXT          NOT NULL DEFAULT '',
			price         NUMERIC(16,2),
			currency      VARCHAR(3)    NOT NULL,
			property_type VARCHAR(16)   NOT NULL,
			rooms         INTEGER,
			bedrooms      INTEGER,
			bathrooms     INTEGER,
			covered_area  NUMERIC(10,2),
			total_area    NUMERIC(10,2),
			photos        TEXT[]        NOT NULL DEFAULT '{}',
			description   TEXT,
			region        TEXT          NOT NULL DEFAULT '',
			operation     VARCHAR(16)   NOT NULL,
			first_seen_at TIMESTAMPTZ   NOT NULL,
			last_seen_at  TIMESTAMPTZ   NOT NULL,
			active        BOOLEAN       NOT NULL DEFAULT TRUE,
			UNIQUE (external_id, source)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_active_seen ON listings(active, last_seen_at);
		CREATE INDEX IF NOT EXISTS idx_listings_region      ON listings(region);
		CREATE INDEX IF NOT EXISTS idx_listings_source      ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_listings_price       ON listings(price);

		CREATE TABLE IF NOT EXISTS price_history (
			id             BIGSERIAL     PRIMARY KEY,
			listing_id     UUID          NOT NULL REFERENCES listings(id),
			external_id    TEXT          NOT NULL,
			source         VARCHAR(32)   NOT NULL,
			previous_price NUMERIC(16,2),
			new_price      NUMERIC(16,2),
			currency       VARCHAR(3)    NOT NULL,
			change_percent NUMERIC(8,2),
			changed_at     TIMESTAMPTZ   NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id);
	`)
	return err
}

func (ps *PostgresStore) FindByKey(ctx context.Context, key models.ListingKey) (*models.ListingRecord, error) {
	rec := &models.ListingRecord{}
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, external_id, source, url, title, price, currency, property_type,
		       rooms, bedrooms, bathrooms, covered_area, total_area, photos,
		       description, region, operation, first_seen_at, last_seen_at, active
		FROM listings
		WHERE external_id = $1 AND source = $2
	`, key.ExternalID, string(key.Source)).Scan(
		&rec.ID, &rec.ExternalID, &rec.Source, &rec.URL, &rec.Title, &rec.Price,
		&rec.Currency, &rec.PropertyType, &rec.Rooms, &rec.Bedrooms, &rec.Bathrooms,
		&rec.CoveredArea, &rec.TotalArea, pq.Array(&rec.Photos), &rec.Description,
		&rec.Region, &rec.Operation, &rec.FirstSeenAt, &rec.LastSeenAt, &rec.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", key, err)
	}
	rec.Photos = photosOrEmpty(rec.Photos)
	return rec, nil
}

func (ps *PostgresStore) Insert(ctx context.Context, rec *models.ListingRecord) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO listings (
			id, external_id, source, url, title, price, currency, property_type,
			rooms, bedrooms, bathrooms, covered_area, total_area, photos,
			description, region, operation, first_seen_at, last_seen_at, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		rec.ID, rec.ExternalID, string(rec.Source), rec.URL, rec.Title, rec.Price,
		string(rec.Currency), string(rec.PropertyType), rec.Rooms, rec.Bedrooms,
		rec.Bathrooms, rec.CoveredArea, rec.TotalArea, pq.Array(photosOrEmpty(rec.Photos)),
		rec.Description, rec.Region, string(rec.Operation), rec.FirstSeenAt,
		rec.LastSeenAt, rec.Active,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("postgres: insert %s: %w", rec.Key(), err)
	}
	return nil
}

func (ps *PostgresStore) UpdatePartial(ctx context.Context, key models.ListingKey, upd models.ListingUpdate) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE listings
		SET price = $1, currency = $2, photos = $3, last_seen_at = $4, active = $5
		WHERE external_id = $6 AND source = $7
	`, upd.Price, string(upd.Currency), pq.Array(photosOrEmpty(upd.Photos)),
		upd.LastSeenAt, upd.Active, key.ExternalID, string(key.Source))
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (ps *PostgresStore) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE listings SET active = FALSE
		WHERE active = TRUE AND last_seen_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: deactivate stale: %w", err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) AppendPriceChange(ctx context.Context, ch models.PriceChange) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO price_history (
			listing_id, external_id, source, previous_price, new_price,
			currency, change_percent, changed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ch.ListingID, ch.ExternalID, string(ch.Source), ch.PreviousPrice, ch.NewPrice,
		string(ch.Currency), ch.ChangePercent, ch.ChangedAt)
	if err != nil {
		return fmt.Errorf("postgres: price history %s:%s: %w", ch.Source, ch.ExternalID, err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
