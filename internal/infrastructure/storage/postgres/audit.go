package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"omscore/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for changes.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 4 * 1024

var _ audit.Recorder = (*AuditRepo)(nil)

// AuditRepo stores audit entries in audit_log. Change sets above the
// threshold are stored zstd-compressed.
type AuditRepo struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(txm *TxManager) (*AuditRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditRepo{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record inserts an audit entry.
func (r *AuditRepo) Record(ctx context.Context, entry audit.Entry) error {
	values, err := r.row(entry)
	if err != nil {
		return err
	}
	values["created_at"] = time.Now().UTC()

	_, err = Exec(ctx, r.txm.GetQuerier(ctx), Builder().Insert("audit_log").SetMap(values))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// row builds the column values of an entry, compressing large change sets.
func (r *AuditRepo) row(entry audit.Entry) (map[string]any, error) {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return nil, fmt.Errorf("marshal changes: %w", err)
	}

	var actor any
	if entry.ActorID != 0 {
		actor = entry.ActorID
	}

	values := map[string]any{
		"entity_type":        entry.EntityType,
		"entity_id":          entry.EntityID,
		"action":             string(entry.Action),
		"actor_id":           actor,
		"changes":            changes,
		"changes_compressed": nil,
		"compression_algo":   CompressionNone,
	}
	if len(changes) > r.compressThreshold {
		values["changes"] = nil
		values["changes_compressed"] = r.encoder.EncodeAll(changes, nil)
		values["compression_algo"] = CompressionZstd
	}
	return values, nil
}

// History returns the most recent entries of one entity, newest first, with
// change sets decompressed.
func (r *AuditRepo) History(ctx context.Context, entityType string, entityID int64, limit int) ([]audit.Entry, error) {
	sql, args, err := Builder().
		Select("entity_type", "entity_id", "action", "COALESCE(actor_id, 0)", "changes", "changes_compressed", "compression_algo").
		From("audit_log").
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			action     string
			plain      []byte
			compressed []byte
			algo       CompressionAlgo
		)
		if err := rows.Scan(&e.EntityType, &e.EntityID, &action, &e.ActorID, &plain, &compressed, &algo); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Action = audit.Action(action)
		if e.Changes, err = r.decodeChanges(plain, compressed, algo); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *AuditRepo) decodeChanges(plain, compressed []byte, algo CompressionAlgo) (map[string]any, error) {
	if algo == CompressionZstd {
		decompressed, err := r.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress changes: %w", err)
		}
		plain = decompressed
	}
	if len(plain) == 0 {
		return nil, nil
	}
	var changes map[string]any
	if err := json.Unmarshal(plain, &changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return changes, nil
}
