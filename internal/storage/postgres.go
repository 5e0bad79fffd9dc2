package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freight-auction/internal/core/errs"
	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL. Terminal transitions use
// UPDATE ... WHERE status = <expected>, so a concurrent transition makes the
// statement touch zero rows and the operation fails with a conflict error.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against the given DSN.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the shipment, offer and penalty tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shipments (
			id TEXT PRIMARY KEY,
			market_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			shipping_type TEXT NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			comex_type TEXT NOT NULL,
			merchandise JSONB NOT NULL DEFAULT '{}',
			value DOUBLE PRECISION NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			accepted_offer_id TEXT,
			cancellation_reason TEXT NOT NULL DEFAULT '',
			expiration_date TIMESTAMPTZ NOT NULL,
			shipping_date TIMESTAMPTZ,
			inserted_at TIMESTAMPTZ NOT NULL,
			version BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			shipment_id TEXT NOT NULL REFERENCES shipments(id),
			agent_id TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			fees JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			rejection_reason TEXT NOT NULL DEFAULT '',
			inserted_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS offers_shipment_id_idx ON offers (shipment_id)`,
		`CREATE TABLE IF NOT EXISTS penalties (
			id TEXT PRIMARY KEY,
			shipment_id TEXT NOT NULL UNIQUE REFERENCES shipments(id),
			amount DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

const shipmentColumns = `id, market_id, owner_id, shipping_type, origin, destination, comex_type,
	merchandise, value, currency, status, accepted_offer_id, cancellation_reason,
	expiration_date, shipping_date, inserted_at, version`

const offerColumns = `id, shipment_id, agent_id, price, fees, status, rejection_reason, inserted_at`

// CreateShipment inserts a new shipment row.
func (s *PostgresStore) CreateShipment(ctx context.Context, shipment *shipdomain.Shipment) error {
	merch, err := json.Marshal(shipment.Merchandise)
	if err != nil {
		return fmt.Errorf("failed to marshal merchandise: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shipments (`+shipmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		shipment.ID, shipment.MarketID, shipment.OwnerID, string(shipment.ShippingType),
		shipment.Origin, shipment.Destination, string(shipment.ComexType), merch,
		shipment.Value, shipment.Currency, string(shipment.Status), shipment.AcceptedOfferID,
		shipment.CancellationReason, shipment.ExpirationDate, shipment.ShippingDate,
		shipment.InsertedAt, shipment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

// GetShipment loads a shipment by id.
func (s *PostgresStore) GetShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	return scanShipment(row)
}

// ExtendShipment updates dates, guarded on status = ACTIVE.
func (s *PostgresStore) ExtendShipment(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*shipdomain.Shipment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shipments
		SET expiration_date = $2,
		    shipping_date = COALESCE($3, shipping_date),
		    version = version + 1
		WHERE id = $1 AND status = $4`,
		id, newExpiration, newShipping, string(shipdomain.ShipmentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to extend shipment %s: %w", id, err)
	}
	if err := s.requireHit(ctx, res, id); err != nil {
		return nil, err
	}
	return s.GetShipment(ctx, id)
}

// CancelShipment transitions ACTIVE -> CANCELLED and writes the penalty in
// the same SQL transaction.
func (s *PostgresStore) CancelShipment(ctx context.Context, id, reason string, penalty *shipdomain.Penalty) (*shipdomain.Shipment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancellation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE shipments
		SET status = $2, cancellation_reason = $3, version = version + 1
		WHERE id = $1 AND status = $4`,
		id, string(shipdomain.ShipmentStatusCancelled), reason, string(shipdomain.ShipmentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel shipment %s: %w", id, err)
	}
	if err := s.requireHitTx(ctx, tx, res, id); err != nil {
		return nil, err
	}

	if penalty != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO penalties (id, shipment_id, amount, reason, created_at)
			VALUES ($1,$2,$3,$4,$5)`,
			penalty.ID, penalty.ShipmentID, penalty.Amount, penalty.Reason, penalty.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert penalty: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetShipment(ctx, id)
}

// ExpireShipment transitions ACTIVE -> EXPIRED.
func (s *PostgresStore) ExpireShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shipments
		SET status = $2, version = version + 1
		WHERE id = $1 AND status = $3`,
		id, string(shipdomain.ShipmentStatusExpired), string(shipdomain.ShipmentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to expire shipment %s: %w", id, err)
	}
	if err := s.requireHit(ctx, res, id); err != nil {
		return nil, err
	}
	return s.GetShipment(ctx, id)
}

// SettleShipment runs the accept transaction: close the shipment (guarded),
// accept the offer (guarded), reject pending siblings. All statements share
// one SQL transaction, so a failed guard rolls everything back.
func (s *PostgresStore) SettleShipment(ctx context.Context, shipmentID, offerID string) (*Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	var offerShipmentID string
	err = tx.QueryRowContext(ctx, `SELECT shipment_id FROM offers WHERE id = $1`, offerID).Scan(&offerShipmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("offer %s", offerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load offer %s: %w", offerID, err)
	}
	if offerShipmentID != shipmentID {
		return nil, errs.NotFoundf("offer %s for shipment %s", offerID, shipmentID)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE shipments
		SET status = $2, accepted_offer_id = $3, version = version + 1
		WHERE id = $1 AND status = $4`,
		shipmentID, string(shipdomain.ShipmentStatusClosed), offerID, string(shipdomain.ShipmentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to close shipment %s: %w", shipmentID, err)
	}
	if err := s.requireHitTx(ctx, tx, res, shipmentID); err != nil {
		return nil, err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE offers SET status = $2 WHERE id = $1 AND status = $3`,
		offerID, string(offerdomain.OfferStatusAccepted), string(offerdomain.OfferStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to accept offer %s: %w", offerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read accept result: %w", err)
	}
	if n == 0 {
		return nil, errs.Conflictf("offer %s is no longer pending", offerID)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE offers SET status = $2
		WHERE shipment_id = $1 AND id <> $3 AND status = $4
		RETURNING id`,
		shipmentID, string(offerdomain.OfferStatusRejected), offerID, string(offerdomain.OfferStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to reject sibling offers: %w", err)
	}
	var rejectedIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rejected offer id: %w", err)
		}
		rejectedIDs = append(rejectedIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to reject sibling offers: %w", err)
	}

	shipment, err := scanShipment(tx.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID))
	if err != nil {
		return nil, err
	}
	accepted, err := scanOffer(tx.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return &Settlement{Shipment: shipment, Accepted: accepted, RejectedIDs: rejectedIDs}, nil
}

// ListExpirable returns ids of overdue ACTIVE shipments.
func (s *PostgresStore) ListExpirable(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM shipments
		WHERE status = $1 AND expiration_date < $2 AND accepted_offer_id IS NULL
		ORDER BY expiration_date ASC`,
		string(shipdomain.ShipmentStatusActive), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expirable shipments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan shipment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateOffer inserts a new offer row, guarded on the shipment still being
// ACTIVE. The INSERT sources its rows from the shipment row itself, so a
// settle or cancellation committing first makes the statement touch zero
// rows instead of planting an offer on a terminal shipment.
func (s *PostgresStore) CreateOffer(ctx context.Context, offer *offerdomain.Offer) error {
	fees, err := json.Marshal(offer.Fees)
	if err != nil {
		return fmt.Errorf("failed to marshal fees: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO offers (`+offerColumns+`)
		SELECT $1, s.id, $3, $4, $5, $6, $7, $8
		FROM shipments s
		WHERE s.id = $2 AND s.status = $9`,
		offer.ID, offer.ShipmentID, offer.AgentID, offer.Price, fees,
		string(offer.Status), offer.RejectionReason, offer.InsertedAt,
		string(shipdomain.ShipmentStatusActive))
	if err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if n == 0 {
		shipment, err := s.GetShipment(ctx, offer.ShipmentID)
		if err != nil {
			return err
		}
		return errs.Conflictf("shipment %s is %s, expected %s", offer.ShipmentID, shipment.Status, shipdomain.ShipmentStatusActive)
	}
	return nil
}

// GetOffer loads an offer by id.
func (s *PostgresStore) GetOffer(ctx context.Context, id string) (*offerdomain.Offer, error) {
	return scanOffer(s.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
}

// ListOffersByShipment returns every offer for a shipment, oldest first.
func (s *PostgresStore) ListOffersByShipment(ctx context.Context, shipmentID string) ([]*offerdomain.Offer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE shipment_id = $1 ORDER BY inserted_at ASC, id ASC`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for shipment %s: %w", shipmentID, err)
	}
	defer rows.Close()

	var offers []*offerdomain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// RejectOffer transitions PENDING -> REJECTED, guarded on the current status.
func (s *PostgresStore) RejectOffer(ctx context.Context, id, reason string) (*offerdomain.Offer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE offers SET status = $2, rejection_reason = $3
		WHERE id = $1 AND status = $4`,
		id, string(offerdomain.OfferStatusRejected), reason, string(offerdomain.OfferStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to reject offer %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read reject result: %w", err)
	}
	if n == 0 {
		offer, err := s.GetOffer(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, errs.Conflictf("offer %s is %s, expected %s", id, offer.Status, offerdomain.OfferStatusPending)
	}
	return s.GetOffer(ctx, id)
}

// GetPenalty loads the penalty recorded for a cancelled shipment.
func (s *PostgresStore) GetPenalty(ctx context.Context, shipmentID string) (*shipdomain.Penalty, error) {
	var p shipdomain.Penalty
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shipment_id, amount, reason, created_at FROM penalties WHERE shipment_id = $1`,
		shipmentID).Scan(&p.ID, &p.ShipmentID, &p.Amount, &p.Reason, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("penalty for shipment %s", shipmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get penalty for shipment %s: %w", shipmentID, err)
	}
	return &p, nil
}

// Ping checks the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// requireHit turns a zero-row guarded UPDATE into a not-found or conflict
// error, depending on whether the shipment exists at all.
func (s *PostgresStore) requireHit(ctx context.Context, res sql.Result, shipmentID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n > 0 {
		return nil
	}
	row, err := s.GetShipment(ctx, shipmentID)
	if err != nil {
		return err
	}
	return errs.Conflictf("shipment %s is %s, expected %s", shipmentID, row.Status, shipdomain.ShipmentStatusActive)
}

func (s *PostgresStore) requireHitTx(ctx context.Context, tx *sql.Tx, res sql.Result, shipmentID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n > 0 {
		return nil
	}
	row, err := scanShipment(tx.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID))
	if err != nil {
		return err
	}
	return errs.Conflictf("shipment %s is %s, expected %s", shipmentID, row.Status, shipdomain.ShipmentStatusActive)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShipment(row rowScanner) (*shipdomain.Shipment, error) {
	var (
		sh          shipdomain.Shipment
		merch       []byte
		acceptedID  sql.NullString
		shippingRaw sql.NullTime
	)
	err := row.Scan(&sh.ID, &sh.MarketID, &sh.OwnerID, &sh.ShippingType, &sh.Origin,
		&sh.Destination, &sh.ComexType, &merch, &sh.Value, &sh.Currency, &sh.Status,
		&acceptedID, &sh.CancellationReason, &sh.ExpirationDate, &shippingRaw,
		&sh.InsertedAt, &sh.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("shipment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shipment: %w", err)
	}
	if err := json.Unmarshal(merch, &sh.Merchandise); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merchandise: %w", err)
	}
	if acceptedID.Valid {
		sh.AcceptedOfferID = &acceptedID.String
	}
	if shippingRaw.Valid {
		sh.ShippingDate = &shippingRaw.Time
	}
	return &sh, nil
}

func scanOffer(row rowScanner) (*offerdomain.Offer, error) {
	var (
		o    offerdomain.Offer
		fees []byte
	)
	err := row.Scan(&o.ID, &o.ShipmentID, &o.AgentID, &o.Price, &fees, &o.Status,
		&o.RejectionReason, &o.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFoundf("offer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan offer: %w", err)
	}
	if err := json.Unmarshal(fees, &o.Fees); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fees: %w", err)
	}
	return &o, nil
}
