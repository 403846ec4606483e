package datastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// Data type directories under the store root.
const (
	TypeMarkets = "markets"
	TypeTraders = "traders"
	TypeTrades  = "trades"
	TypeKlines  = "klines"
)

// ErrNotFound reports a missing cache entry.
var ErrNotFound = errors.New("datastore: entry not found")

// Store persists fetched data and analysis results as timestamped JSON files,
// one file per identifier. It is a cache for the collaborators around the
// analysis core; the core itself never touches it.
type Store struct {
	baseDir string
	logger  *logrus.Logger
}

type envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func NewStore(baseDir string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	for _, sub := range []string{TypeMarkets, TypeTraders, TypeTrades, TypeKlines} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// Save writes data under the given type and identifier, stamping it with the
// current time.
func (s *Store) Save(dataType, identifier string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", dataType, identifier, err)
	}

	env := envelope{Timestamp: time.Now(), Data: raw}
	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}

	path := s.filePath(dataType, identifier)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.WithField("path", path).Debug("Saved data")
	return nil
}

// Load reads an entry into out and returns when it was saved. A missing file
// yields ErrNotFound.
func (s *Store) Load(dataType, identifier string, out interface{}) (time.Time, error) {
	path := s.filePath(dataType, identifier)
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return time.Time{}, fmt.Errorf("decode %s data: %w", path, err)
	}
	return env.Timestamp, nil
}

// LoadFresh behaves like Load but treats entries older than maxAge as absent.
func (s *Store) LoadFresh(dataType, identifier string, maxAge time.Duration, out interface{}) error {
	savedAt, err := s.Load(dataType, identifier, out)
	if err != nil {
		return err
	}
	if time.Since(savedAt) > maxAge {
		return ErrNotFound
	}
	return nil
}

// Typed helpers matching the on-disk layout.

func (s *Store) SaveMarketStats(symbol string, stats *models.MarketStats) error {
	return s.Save(TypeMarkets, symbol, stats)
}

func (s *Store) LoadMarketStats(symbol string) (*models.MarketStats, error) {
	var stats models.MarketStats
	if _, err := s.Load(TypeMarkets, symbol, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Store) SaveTraderStats(address string, stats *models.AddressStats) error {
	return s.Save(TypeTraders, address, stats)
}

func (s *Store) LoadTraderStats(address string) (*models.AddressStats, error) {
	var stats models.AddressStats
	if _, err := s.Load(TypeTraders, address, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Store) SaveTrades(identifier string, trades []models.TradeRecord) error {
	return s.Save(TypeTrades, identifier, trades)
}

func (s *Store) LoadTrades(identifier string) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	if _, err := s.Load(TypeTrades, identifier, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (s *Store) SaveKlines(symbol, interval string, klines []models.Kline) error {
	return s.Save(TypeKlines, symbol+"_"+interval, klines)
}

func (s *Store) LoadKlines(symbol, interval string) ([]models.Kline, error) {
	var klines []models.Kline
	if _, err := s.Load(TypeKlines, symbol+"_"+interval, &klines); err != nil {
		return nil, err
	}
	return klines, nil
}

func (s *Store) filePath(dataType, identifier string) string {
	// Identifiers such as SOL_USDC or 0x addresses are already path-safe,
	// but defend against separators anyway.
	identifier = strings.ReplaceAll(identifier, string(os.PathSeparator), "_")
	return filepath.Join(s.baseDir, dataType, identifier+".json")
}
