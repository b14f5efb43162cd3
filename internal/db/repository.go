package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	inverrors "github.com/anstrom/netinventory/internal/errors"
)

// ScanOutcome is what gets written when a scan record is closed.
type ScanOutcome struct {
	Status          string
	DevicesFound    int
	DurationSeconds float64
	ErrorMessage    *string
}

const scanRecordColumns = `id, status, scan_method, ip_range, devices_found, duration_seconds,
	error_message, metadata, started_at, completed_at`

// ScanRecordRepository handles network_scans rows.
type ScanRecordRepository struct {
	db *DB
}

// NewScanRecordRepository creates a new scan record repository.
func NewScanRecordRepository(db *DB) *ScanRecordRepository {
	return &ScanRecordRepository{db: db}
}

// Create inserts an in-progress record and fills in its id and start time.
func (r *ScanRecordRepository) Create(ctx context.Context, rec *ScanRecord) (err error) {
	start := time.Now()
	defer func() { r.db.observe("create scan record", start, err) }()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = ScanStatusInProgress
	}
	if rec.Metadata == nil {
		rec.Metadata = JSONB{}
	}

	query := `
		INSERT INTO network_scans (id, status, scan_method, ip_range, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at`

	row := r.db.QueryRowxContext(ctx, query, rec.ID, rec.Status, rec.ScanMethod, rec.IPRange, rec.Metadata)
	if err = row.Scan(&rec.StartedAt); err != nil {
		return sanitizeDBError("create scan record", err)
	}
	return nil
}

// UpdateProgress records the running device count and merges patch into the metadata.
// Records that are no longer in progress are left alone.
func (r *ScanRecordRepository) UpdateProgress(
	ctx context.Context, id uuid.UUID, devicesFound int, patch JSONB,
) (err error) {
	start := time.Now()
	defer func() { r.db.observe("update scan progress", start, err) }()

	query := `
		UPDATE network_scans
		SET devices_found = $2, metadata = metadata || $3::jsonb
		WHERE id = $1 AND status = $4`

	if _, err = r.db.ExecContext(ctx, query, id, devicesFound, patch, ScanStatusInProgress); err != nil {
		return sanitizeDBError("update scan progress", err)
	}
	return nil
}

// Finish closes a record with its final status.
func (r *ScanRecordRepository) Finish(ctx context.Context, id uuid.UUID, outcome ScanOutcome) (err error) {
	start := time.Now()
	defer func() { r.db.observe("finish scan record", start, err) }()

	query := `
		UPDATE network_scans
		SET status = $2, devices_found = $3, duration_seconds = $4, error_message = $5, completed_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		id, outcome.Status, outcome.DevicesFound, outcome.DurationSeconds, outcome.ErrorMessage)
	if err != nil {
		return sanitizeDBError("finish scan record", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return sanitizeDBError("get rows affected", err)
	}
	if affected == 0 {
		return inverrors.NewDatabaseError(inverrors.CodeNotFound, "Scan record not found")
	}
	return nil
}

// GetByID retrieves a scan record by id.
func (r *ScanRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*ScanRecord, error) {
	var rec ScanRecord
	query := `SELECT ` + scanRecordColumns + ` FROM network_scans WHERE id = $1`

	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, sanitizeDBError("get scan record", err)
	}
	return &rec, nil
}

// GetByJobID retrieves the record created for an engine job.
func (r *ScanRecordRepository) GetByJobID(ctx context.Context, jobID string) (*ScanRecord, error) {
	var rec ScanRecord
	query := `SELECT ` + scanRecordColumns + ` FROM network_scans
		WHERE metadata->>'job_id' = $1 ORDER BY started_at DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &rec, query, jobID); err != nil {
		return nil, sanitizeDBError("get scan record by job", err)
	}
	return &rec, nil
}

// ListRecent returns the newest records first.
func (r *ScanRecordRepository) ListRecent(ctx context.Context, limit int) ([]*ScanRecord, error) {
	var recs []*ScanRecord
	query := `SELECT ` + scanRecordColumns + ` FROM network_scans ORDER BY started_at DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, sanitizeDBError("list scan records", err)
	}
	return recs, nil
}

// MarkStaleFailed fails every in-progress record started before olderThan.
func (r *ScanRecordRepository) MarkStaleFailed(
	ctx context.Context, olderThan time.Time, message string,
) (n int64, err error) {
	start := time.Now()
	defer func() { r.db.observe("mark stale scans", start, err) }()

	query := `
		UPDATE network_scans
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE status = $3 AND started_at < $4`

	result, err := r.db.ExecContext(ctx, query, ScanStatusFailed, message, ScanStatusInProgress, olderThan)
	if err != nil {
		return 0, sanitizeDBError("mark stale scans", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return 0, sanitizeDBError("get rows affected", err)
	}
	return n, nil
}

// CountInProgress counts records still marked in-progress.
func (r *ScanRecordRepository) CountInProgress(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM network_scans WHERE status = $1`

	if err := r.db.GetContext(ctx, &n, query, ScanStatusInProgress); err != nil {
		return 0, sanitizeDBError("count scans in progress", err)
	}
	return n, nil
}

const deviceColumns = `id, ip_address, mac_address, hostname, label, device_type, status,
	is_manually_added, metadata, first_seen, last_seen`

// DeviceRepository handles network_devices rows.
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository.
func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert inserts a device or refreshes the row with the same address.
// Rows added by hand are never overwritten; their stored values are read back into d.
// Metadata is merged so keys set by users survive a rescan.
func (r *DeviceRepository) Upsert(ctx context.Context, d *DeviceRecord) (err error) {
	start := time.Now()
	defer func() { r.db.observe("upsert device", start, err) }()

	if d.Metadata == nil {
		d.Metadata = JSONB{}
	}

	query := `
		INSERT INTO network_devices (ip_address, mac_address, hostname, label, device_type, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ip_address)
		DO UPDATE SET
			mac_address = COALESCE(EXCLUDED.mac_address, network_devices.mac_address),
			hostname = COALESCE(EXCLUDED.hostname, network_devices.hostname),
			label = EXCLUDED.label,
			device_type = EXCLUDED.device_type,
			status = EXCLUDED.status,
			metadata = network_devices.metadata || EXCLUDED.metadata,
			last_seen = NOW()
		WHERE NOT network_devices.is_manually_added
		RETURNING id, is_manually_added, first_seen, last_seen`

	row := r.db.QueryRowxContext(ctx, query,
		d.IPAddress, d.MACAddress, d.Hostname, d.Label, d.DeviceType, d.Status, d.Metadata)
	err = row.Scan(&d.ID, &d.IsManuallyAdded, &d.FirstSeen, &d.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		// The conflicting row is a manual entry.
		var stored DeviceRecord
		err = r.db.GetContext(ctx, &stored,
			`SELECT `+deviceColumns+` FROM network_devices WHERE ip_address = $1`, d.IPAddress)
		if err == nil {
			*d = stored
		}
	}
	if err != nil {
		return sanitizeDBError("upsert device", err)
	}
	return nil
}

// GetByIP retrieves a device by address.
func (r *DeviceRepository) GetByIP(ctx context.Context, ip IPAddr) (*DeviceRecord, error) {
	var d DeviceRecord
	query := `SELECT ` + deviceColumns + ` FROM network_devices WHERE ip_address = $1`

	if err := r.db.GetContext(ctx, &d, query, ip); err != nil {
		return nil, sanitizeDBError("get device", err)
	}
	return &d, nil
}

// List returns every stored device ordered by address.
func (r *DeviceRepository) List(ctx context.Context) ([]*DeviceRecord, error) {
	var devices []*DeviceRecord
	query := `SELECT ` + deviceColumns + ` FROM network_devices ORDER BY ip_address`

	if err := r.db.SelectContext(ctx, &devices, query); err != nil {
		return nil, sanitizeDBError("list devices", err)
	}
	return devices, nil
}

const connectionColumns = `id, source_id, target_id, status, connection_type, latency_ms,
	metadata, created_at, updated_at`

// ConnectionRepository handles network_connections rows.
type ConnectionRepository struct {
	db *DB
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert inserts a link or refreshes the existing one between the same two devices.
// A missing latency keeps the stored value.
func (r *ConnectionRepository) Upsert(ctx context.Context, c *ConnectionRecord) (err error) {
	start := time.Now()
	defer func() { r.db.observe("upsert connection", start, err) }()

	if c.Metadata == nil {
		c.Metadata = JSONB{}
	}

	query := `
		INSERT INTO network_connections (source_id, target_id, status, connection_type, latency_ms, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id, target_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			connection_type = EXCLUDED.connection_type,
			latency_ms = COALESCE(EXCLUDED.latency_ms, network_connections.latency_ms),
			metadata = network_connections.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		c.SourceID, c.TargetID, c.Status, c.ConnectionType, c.LatencyMS, c.Metadata)
	if err = row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return sanitizeDBError("upsert connection", err)
	}
	return nil
}

// List returns every stored connection.
func (r *ConnectionRepository) List(ctx context.Context) ([]*ConnectionRecord, error) {
	var conns []*ConnectionRecord
	query := `SELECT ` + connectionColumns + ` FROM network_connections ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &conns, query); err != nil {
		return nil, sanitizeDBError("list connections", err)
	}
	return conns, nil
}
