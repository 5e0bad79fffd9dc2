package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freight-auction/internal/core/errs"
	offerdomain "freight-auction/internal/features/offers/domain"
	shipdomain "freight-auction/internal/features/shipments/domain"

	"github.com/redis/go-redis/v9"
)

const (
	shipmentKeyPrefix = "shipment:"
	offerKeyPrefix    = "offer:"
	penaltyKeyPrefix  = "penalty:"
	activeSetKey      = "shipments:active"
)

// RedisStore implements Store on Redis. Rows are JSON values; guarded
// transitions run inside WATCH-based optimistic transactions, so a
// concurrent write to the shipment row fails the EXEC and surfaces as a
// conflict error instead of overwriting state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore from a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func shipmentKey(id string) string { return shipmentKeyPrefix + id }
func offerKey(id string) string    { return offerKeyPrefix + id }
func penaltyKey(id string) string  { return penaltyKeyPrefix + id }
func offersIndexKey(shipmentID string) string {
	return shipmentKeyPrefix + shipmentID + ":offers"
}

// CreateShipment persists the shipment row and registers it in the sweep set.
func (r *RedisStore) CreateShipment(ctx context.Context, shipment *shipdomain.Shipment) error {
	data, err := json.Marshal(shipment)
	if err != nil {
		return fmt.Errorf("failed to marshal shipment: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, shipmentKey(shipment.ID), data, 0)
		pipe.SAdd(ctx, activeSetKey, shipment.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist shipment %s: %w", shipment.ID, err)
	}
	return nil
}

// GetShipment loads a shipment row.
func (r *RedisStore) GetShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	return r.readShipment(ctx, r.client, id)
}

// ExtendShipment updates the dates of a still-ACTIVE shipment under WATCH.
func (r *RedisStore) ExtendShipment(ctx context.Context, id string, newExpiration time.Time, newShipping *time.Time) (*shipdomain.Shipment, error) {
	var updated *shipdomain.Shipment
	err := r.guardedShipmentUpdate(ctx, id, func(row *shipdomain.Shipment) error {
		row.ExpirationDate = newExpiration.UTC()
		if newShipping != nil {
			u := newShipping.UTC()
			row.ShippingDate = &u
		}
		updated = row
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelShipment transitions ACTIVE -> CANCELLED, writing the penalty row in
// the same transaction.
func (r *RedisStore) CancelShipment(ctx context.Context, id, reason string, penalty *shipdomain.Penalty) (*shipdomain.Shipment, error) {
	var penaltyData []byte
	if penalty != nil {
		var err error
		penaltyData, err = json.Marshal(penalty)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal penalty: %w", err)
		}
	}

	var updated *shipdomain.Shipment
	err := r.guardedShipmentUpdate(ctx, id, func(row *shipdomain.Shipment) error {
		row.Status = shipdomain.ShipmentStatusCancelled
		row.CancellationReason = reason
		updated = row
		return nil
	}, func(pipe redis.Pipeliner) {
		pipe.SRem(ctx, activeSetKey, id)
		if penaltyData != nil {
			pipe.Set(ctx, penaltyKey(id), penaltyData, 0)
		}
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ExpireShipment transitions ACTIVE -> EXPIRED under WATCH.
func (r *RedisStore) ExpireShipment(ctx context.Context, id string) (*shipdomain.Shipment, error) {
	var updated *shipdomain.Shipment
	err := r.guardedShipmentUpdate(ctx, id, func(row *shipdomain.Shipment) error {
		row.Status = shipdomain.ShipmentStatusExpired
		updated = row
		return nil
	}, func(pipe redis.Pipeliner) {
		pipe.SRem(ctx, activeSetKey, id)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SettleShipment atomically accepts one offer, rejects pending siblings and
// closes the shipment. The shipment and winning offer rows are WATCHed, so
// any concurrent terminal transition or manual rejection aborts the EXEC.
func (r *RedisStore) SettleShipment(ctx context.Context, shipmentID, offerID string) (*Settlement, error) {
	var result *Settlement

	txn := func(tx *redis.Tx) error {
		row, err := r.readShipment(ctx, tx, shipmentID)
		if err != nil {
			return err
		}
		offer, err := r.readOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer.ShipmentID != shipmentID {
			return errs.NotFoundf("offer %s for shipment %s", offerID, shipmentID)
		}
		if row.Status != shipdomain.ShipmentStatusActive {
			return errs.Conflictf("shipment %s is %s, expected %s", shipmentID, row.Status, shipdomain.ShipmentStatusActive)
		}
		if offer.Status != offerdomain.OfferStatusPending {
			return errs.Conflictf("offer %s is %s, expected %s", offerID, offer.Status, offerdomain.OfferStatusPending)
		}

		siblingIDs, err := tx.SMembers(ctx, offersIndexKey(shipmentID)).Result()
		if err != nil {
			return fmt.Errorf("failed to list offers for shipment %s: %w", shipmentID, err)
		}

		var rejected []*offerdomain.Offer
		var rejectedIDs []string
		for _, id := range siblingIDs {
			if id == offerID {
				continue
			}
			sibling, err := r.readOffer(ctx, tx, id)
			if err != nil {
				return err
			}
			if sibling.Status != offerdomain.OfferStatusPending {
				continue
			}
			sibling.Status = offerdomain.OfferStatusRejected
			rejected = append(rejected, sibling)
			rejectedIDs = append(rejectedIDs, sibling.ID)
		}

		offer.Status = offerdomain.OfferStatusAccepted
		row.Status = shipdomain.ShipmentStatusClosed
		acceptedID := offer.ID
		row.AcceptedOfferID = &acceptedID
		row.Version++

		shipmentData, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal shipment: %w", err)
		}
		offerData, err := json.Marshal(offer)
		if err != nil {
			return fmt.Errorf("failed to marshal offer: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, shipmentKey(shipmentID), shipmentData, 0)
			pipe.Set(ctx, offerKey(offerID), offerData, 0)
			for _, sibling := range rejected {
				data, err := json.Marshal(sibling)
				if err != nil {
					return fmt.Errorf("failed to marshal offer: %w", err)
				}
				pipe.Set(ctx, offerKey(sibling.ID), data, 0)
			}
			pipe.SRem(ctx, activeSetKey, shipmentID)
			return nil
		})
		if err != nil {
			return err
		}

		result = &Settlement{Shipment: row, Accepted: offer, RejectedIDs: rejectedIDs}
		return nil
	}

	err := r.client.Watch(ctx, txn, shipmentKey(shipmentID), offerKey(offerID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil, errs.Conflictf("shipment %s changed concurrently", shipmentID)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListExpirable scans the active set for overdue shipments.
func (r *RedisStore) ListExpirable(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := r.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read active shipment set: %w", err)
	}

	var overdue []string
	for _, id := range ids {
		row, err := r.readShipment(ctx, r.client, id)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.Status == shipdomain.ShipmentStatusActive && row.AcceptedOfferID == nil && row.ExpirationDate.Before(now) {
			overdue = append(overdue, id)
		}
	}
	return overdue, nil
}

// CreateOffer persists the offer row and indexes it under its shipment. The
// shipment row is WATCHed and re-checked inside the transaction, so a settle
// or cancellation committing in between aborts the insert with a conflict.
func (r *RedisStore) CreateOffer(ctx context.Context, offer *offerdomain.Offer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to marshal offer: %w", err)
	}

	txn := func(tx *redis.Tx) error {
		row, err := r.readShipment(ctx, tx, offer.ShipmentID)
		if err != nil {
			return err
		}
		if row.Status != shipdomain.ShipmentStatusActive {
			return errs.Conflictf("shipment %s is %s, expected %s", offer.ShipmentID, row.Status, shipdomain.ShipmentStatusActive)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, offerKey(offer.ID), data, 0)
			pipe.SAdd(ctx, offersIndexKey(offer.ShipmentID), offer.ID)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txn, shipmentKey(offer.ShipmentID))
	if errors.Is(err, redis.TxFailedErr) {
		return errs.Conflictf("shipment %s changed concurrently", offer.ShipmentID)
	}
	if err != nil {
		return err
	}
	return nil
}

// GetOffer loads an offer row.
func (r *RedisStore) GetOffer(ctx context.Context, id string) (*offerdomain.Offer, error) {
	return r.readOffer(ctx, r.client, id)
}

// ListOffersByShipment returns every offer for a shipment.
func (r *RedisStore) ListOffersByShipment(ctx context.Context, shipmentID string) ([]*offerdomain.Offer, error) {
	ids, err := r.client.SMembers(ctx, offersIndexKey(shipmentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for shipment %s: %w", shipmentID, err)
	}

	offers := make([]*offerdomain.Offer, 0, len(ids))
	for _, id := range ids {
		offer, err := r.readOffer(ctx, r.client, id)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	sortOffers(offers)
	return offers, nil
}

// RejectOffer transitions PENDING -> REJECTED under WATCH on the offer row.
func (r *RedisStore) RejectOffer(ctx context.Context, id, reason string) (*offerdomain.Offer, error) {
	var updated *offerdomain.Offer

	txn := func(tx *redis.Tx) error {
		offer, err := r.readOffer(ctx, tx, id)
		if err != nil {
			return err
		}
		if offer.Status != offerdomain.OfferStatusPending {
			return errs.Conflictf("offer %s is %s, expected %s", id, offer.Status, offerdomain.OfferStatusPending)
		}
		offer.Status = offerdomain.OfferStatusRejected
		offer.RejectionReason = reason

		data, err := json.Marshal(offer)
		if err != nil {
			return fmt.Errorf("failed to marshal offer: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, offerKey(id), data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = offer
		return nil
	}

	err := r.client.Watch(ctx, txn, offerKey(id))
	if errors.Is(err, redis.TxFailedErr) {
		return nil, errs.Conflictf("offer %s changed concurrently", id)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetPenalty loads the penalty row for a cancelled shipment.
func (r *RedisStore) GetPenalty(ctx context.Context, shipmentID string) (*shipdomain.Penalty, error) {
	data, err := r.client.Get(ctx, penaltyKey(shipmentID)).Bytes()
	if err == redis.Nil {
		return nil, errs.NotFoundf("penalty for shipment %s", shipmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get penalty for shipment %s: %w", shipmentID, err)
	}
	var penalty shipdomain.Penalty
	if err := json.Unmarshal(data, &penalty); err != nil {
		return nil, fmt.Errorf("failed to unmarshal penalty: %w", err)
	}
	return &penalty, nil
}

// Ping checks Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// guardedShipmentUpdate runs mutate against the current row inside a WATCH
// transaction, requiring the row to still be ACTIVE. extra, when non-nil,
// adds commands to the same MULTI/EXEC.
func (r *RedisStore) guardedShipmentUpdate(ctx context.Context, id string, mutate func(*shipdomain.Shipment) error, extra func(redis.Pipeliner)) error {
	txn := func(tx *redis.Tx) error {
		row, err := r.readShipment(ctx, tx, id)
		if err != nil {
			return err
		}
		if row.Status != shipdomain.ShipmentStatusActive {
			return errs.Conflictf("shipment %s is %s, expected %s", id, row.Status, shipdomain.ShipmentStatusActive)
		}
		if err := mutate(row); err != nil {
			return err
		}
		row.Version++

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal shipment: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, shipmentKey(id), data, 0)
			if extra != nil {
				extra(pipe)
			}
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txn, shipmentKey(id))
	if errors.Is(err, redis.TxFailedErr) {
		return errs.Conflictf("shipment %s changed concurrently", id)
	}
	return err
}

func (r *RedisStore) readShipment(ctx context.Context, c redis.Cmdable, id string) (*shipdomain.Shipment, error) {
	data, err := c.Get(ctx, shipmentKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errs.NotFoundf("shipment %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment %s: %w", id, err)
	}
	var row shipdomain.Shipment
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipment %s: %w", id, err)
	}
	return &row, nil
}

func (r *RedisStore) readOffer(ctx context.Context, c redis.Cmdable, id string) (*offerdomain.Offer, error) {
	data, err := c.Get(ctx, offerKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errs.NotFoundf("offer %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer %s: %w", id, err)
	}
	var offer offerdomain.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal offer %s: %w", id, err)
	}
	return &offer, nil
}
