package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NetworkMap is the stored inventory: every device and every link between them.
type NetworkMap struct {
	Devices     []*DeviceRecord     `json:"devices"`
	Connections []*ConnectionRecord `json:"connections"`
}

// Store groups the repositories behind the calls the scan service makes.
type Store struct {
	db          *DB
	Scans       *ScanRecordRepository
	Devices     *DeviceRepository
	Connections *ConnectionRepository
}

// NewStore creates a store over db.
func NewStore(db *DB) *Store {
	return &Store{
		db:          db,
		Scans:       NewScanRecordRepository(db),
		Devices:     NewDeviceRepository(db),
		Connections: NewConnectionRepository(db),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) CreateScan(ctx context.Context, rec *ScanRecord) error {
	return s.Scans.Create(ctx, rec)
}

func (s *Store) UpdateScanProgress(ctx context.Context, id uuid.UUID, devicesFound int, patch JSONB) error {
	return s.Scans.UpdateProgress(ctx, id, devicesFound, patch)
}

func (s *Store) FinishScan(ctx context.Context, id uuid.UUID, outcome ScanOutcome) error {
	return s.Scans.Finish(ctx, id, outcome)
}

func (s *Store) UpsertDevice(ctx context.Context, d *DeviceRecord) error {
	return s.Devices.Upsert(ctx, d)
}

func (s *Store) UpsertConnection(ctx context.Context, c *ConnectionRecord) error {
	return s.Connections.Upsert(ctx, c)
}

func (s *Store) MarkStaleScansFailed(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	return s.Scans.MarkStaleFailed(ctx, olderThan, message)
}

func (s *Store) CountActiveScans(ctx context.Context) (int, error) {
	return s.Scans.CountInProgress(ctx)
}

// NetworkMap loads all devices and connections.
func (s *Store) NetworkMap(ctx context.Context) (*NetworkMap, error) {
	devices, err := s.Devices.List(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := s.Connections.List(ctx)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*DeviceRecord{}
	}
	if conns == nil {
		conns = []*ConnectionRecord{}
	}
	return &NetworkMap{Devices: devices, Connections: conns}, nil
}
